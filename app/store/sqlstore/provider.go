package sqlstore

import (
	"context"
	"embed"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/coursebrain/coursebrain/app/store"
	"github.com/coursebrain/coursebrain/pkg/register"
	"github.com/coursebrain/coursebrain/pkg/sqlstore"
	"github.com/coursebrain/coursebrain/pkg/types"
)

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

//go:embed migrations/*.sql
var migrationFiles embed.FS

var provider = &Provider{
	stores: &Stores{},
}

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.ContentItemStore
	store.ContentChunkStore
	store.ContentEmbeddingStore
}

type RegisterKey struct{}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) func() *Provider {
	provider.SqlProvider = sqlstore.MustSetupProvider(m, s...)

	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(provider)
	}

	return func() *Provider {
		return provider
	}
}

// Install applies pending schema migrations, tracking the already
// executed files in a bookkeeping table.
func (p *Provider) Install() error {
	if err := p.enableExtensions(); err != nil {
		return err
	}

	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		if executed, err := p.isFileExecuted(file.Name()); err != nil {
			return err
		} else if executed {
			continue
		}

		raw, err := migrationFiles.ReadFile("migrations/" + file.Name())
		if err != nil {
			return err
		}

		if _, err = p.SqlProvider.GetMaster().Exec(string(raw)); err != nil {
			return err
		}

		if err = p.markFileExecuted(file.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) enableExtensions() error {
	// pgvector, for the content_embeddings vector column
	_, err := p.SqlProvider.GetMaster().Exec("CREATE EXTENSION IF NOT EXISTS vector;")
	return err
}

func (p *Provider) ensureMigrationTable() error {
	createTableSQL := `
CREATE TABLE IF NOT EXISTS ` + types.TABLE_PREFIX + `schema_migrations (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`
	_, err := p.SqlProvider.GetMaster().Exec(createTableSQL)
	return err
}

func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.SqlProvider.GetReplica().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_PREFIX+"schema_migrations WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Provider) markFileExecuted(filename string) error {
	_, err := p.SqlProvider.GetMaster().Exec(
		"INSERT INTO "+types.TABLE_PREFIX+"schema_migrations (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		filename, time.Now().Unix())
	return err
}

func (p *Provider) Transaction(ctx context.Context, next func(ctx context.Context) error) error {
	return p.SqlProvider.Transaction(ctx, next)
}

func (p *Provider) ContentItemStore() store.ContentItemStore {
	return p.stores.ContentItemStore
}

func (p *Provider) ContentChunkStore() store.ContentChunkStore {
	return p.stores.ContentChunkStore
}

func (p *Provider) ContentEmbeddingStore() store.ContentEmbeddingStore {
	return p.stores.ContentEmbeddingStore
}
