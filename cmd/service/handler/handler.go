package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/coursebrain/coursebrain/app/core"
)

type HttpSrv struct {
	Core   *core.Core
	Engine *gin.Engine
}
