package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	v1 "github.com/coursebrain/coursebrain/app/logic/v1"
	"github.com/coursebrain/coursebrain/app/response"
	"github.com/coursebrain/coursebrain/pkg/source"
	"github.com/coursebrain/coursebrain/pkg/types"
	"github.com/coursebrain/coursebrain/pkg/utils"
)

type IngestContentRequest struct {
	SourceType       string          `json:"source_type" form:"source_type" binding:"required"`
	SourceID         string          `json:"source_id" form:"source_id"`
	Title            string          `json:"title" form:"title"`
	Description      string          `json:"description" form:"description"`
	Content          string          `json:"content" form:"content"`
	ContentType      string          `json:"content_type" form:"content_type"`
	FileName         string          `json:"file_name" form:"file_name"`
	Size             int64           `json:"size" form:"size"`
	Tags             []string        `json:"tags" form:"tags"`
	Categories       []string        `json:"categories" form:"categories"`
	CourseID         string          `json:"course_id" form:"course_id"`
	ModuleID         string          `json:"module_id" form:"module_id"`
	Metadata         json.RawMessage `json:"metadata"`
	ExtractionMethod string          `json:"extraction_method" form:"extraction_method"`
}

func (r IngestContentRequest) IngestArgs() source.IngestArgs {
	return source.IngestArgs{
		SourceType:       types.SourceTypeFromString(r.SourceType),
		SourceID:         r.SourceID,
		Title:            r.Title,
		Description:      r.Description,
		Content:          r.Content,
		ContentType:      r.ContentType,
		FileName:         r.FileName,
		Size:             r.Size,
		Tags:             r.Tags,
		Categories:       r.Categories,
		CourseID:         r.CourseID,
		ModuleID:         r.ModuleID,
		Metadata:         types.RawJSON(r.Metadata),
		ExtractionMethod: types.ExtractionMethod(r.ExtractionMethod),
	}
}

func (s *HttpSrv) IngestContent(c *gin.Context) {
	var (
		err error
		req IngestContentRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	args := req.IngestArgs()
	if err = v1.ValidateIngestArgs(args); err != nil {
		response.APIError(c, err)
		return
	}

	receipt, err := v1.NewContentLogic(c, s.Core).Ingest(args)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, receipt)
}

func (s *HttpSrv) GetContent(c *gin.Context) {
	id, _ := c.Params.Get("contentid")
	item, err := v1.NewContentLogic(c, s.Core).GetContent(id)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, item)
}

func (s *HttpSrv) GetContentStatus(c *gin.Context) {
	id, _ := c.Params.Get("contentid")
	status, err := v1.NewContentLogic(c, s.Core).GetContentStatus(id)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, status)
}

type ListContentRequest struct {
	CourseID   string `json:"course_id" form:"course_id"`
	ModuleID   string `json:"module_id" form:"module_id"`
	SourceType string `json:"source_type" form:"source_type"`
	Status     int8   `json:"status" form:"status"`
	Keywords   string `json:"keywords" form:"keywords"`
	Page       uint64 `json:"page" form:"page"`
	PageSize   uint64 `json:"pagesize" form:"pagesize" binding:"max=50"`
}

func (s *HttpSrv) ListContents(c *gin.Context) {
	var (
		err error
		req ListContentRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	result, err := v1.NewContentLogic(c, s.Core).ListContents(v1.ListContentArgs{
		CourseID:   req.CourseID,
		ModuleID:   req.ModuleID,
		SourceType: req.SourceType,
		Status:     types.ProcessingStatus(req.Status),
		Keywords:   req.Keywords,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, result)
}

type ListContentChunksRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"max=100"`
}

func (s *HttpSrv) ListContentChunks(c *gin.Context) {
	var (
		err error
		req ListContentChunksRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 50
	}

	id, _ := c.Params.Get("contentid")
	chunks, err := v1.NewContentLogic(c, s.Core).ListChunks(id, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, chunks)
}

type UpdateContentRequest struct {
	Title       string   `json:"title" form:"title"`
	Description string   `json:"description" form:"description"`
	Tags        []string `json:"tags" form:"tags"`
	Categories  []string `json:"categories" form:"categories"`
	CourseID    string   `json:"course_id" form:"course_id"`
	ModuleID    string   `json:"module_id" form:"module_id"`
}

func (s *HttpSrv) UpdateContent(c *gin.Context) {
	var (
		err error
		req UpdateContentRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	id, _ := c.Params.Get("contentid")
	err = v1.NewContentLogic(c, s.Core).UpdateContent(id, types.UpdateContentItemArgs{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Categories:  req.Categories,
		CourseID:    req.CourseID,
		ModuleID:    req.ModuleID,
	})
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

func (s *HttpSrv) DeleteContent(c *gin.Context) {
	id, _ := c.Params.Get("contentid")
	if err := v1.NewContentLogic(c, s.Core).Delete(id); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

type ReprocessContentRequest struct {
	Step string `json:"step" form:"step" binding:"omitempty,oneof=all chunking embedding"`
}

func (s *HttpSrv) ReprocessContent(c *gin.Context) {
	var (
		err error
		req ReprocessContentRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	if req.Step == "" {
		req.Step = v1.REPROCESS_STEP_ALL
	}

	id, _ := c.Params.Get("contentid")
	receipt, err := v1.NewContentLogic(c, s.Core).Reprocess(id, req.Step)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, receipt)
}

func (s *HttpSrv) CreateContentVersion(c *gin.Context) {
	var (
		err error
		req IngestContentRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	args := req.IngestArgs()
	if err = v1.ValidateIngestArgs(args); err != nil {
		response.APIError(c, err)
		return
	}

	id, _ := c.Params.Get("contentid")
	receipt, err := v1.NewContentLogic(c, s.Core).NewVersion(id, args)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, receipt)
}
