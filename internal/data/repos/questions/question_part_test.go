package questions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cosmosits/questionbank-backend/internal/data/repos/testutil"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/dbctx"
)

func TestQuestionPartRepoCreateAssignsSequentialIDs(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewQuestionPartRepo(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	first := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "OOP", nil)
	second := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "OOP", nil)
	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("ids not sequential: %d, %d", first.ID, second.ID)
	}

	got, err := repo.GetByID(dbc, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Question != first.Question || got.Short != "OOP" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestQuestionPartRepoGetByVectorID(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewQuestionPartRepo(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	vid := uuid.New()
	seeded := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "OOP", testutil.PtrUUID(vid))

	got, err := repo.GetByVectorID(dbc, vid)
	if err != nil {
		t.Fatalf("GetByVectorID: %v", err)
	}
	if got.ID != seeded.ID {
		t.Fatalf("expected id %d, got %d", seeded.ID, got.ID)
	}

	if _, err := repo.GetByVectorID(dbc, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByVectorID(dbc, uuid.Nil); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("nil vector id must be not-found, got %v", err)
	}
}

func TestQuestionPartRepoGetByCourseShortOrdered(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewQuestionPartRepo(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	a := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "DBMS", nil)
	b := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "DBMS", nil)
	testutil.SeedQuestionPart(t, dbc.Ctx, tx, "OOP", nil)

	rows, err := repo.GetByCourseShort(dbc, "DBMS")
	if err != nil {
		t.Fatalf("GetByCourseShort: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != a.ID || rows[1].ID != b.ID {
		t.Fatalf("rows not ordered by id: %d, %d", rows[0].ID, rows[1].ID)
	}
}

func TestQuestionPartRepoUpdateVectorID(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewQuestionPartRepo(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "OOP", nil)
	vid := uuid.New()
	if err := repo.Update(dbc, seeded.ID, map[string]any{"vector_id": vid}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.VectorID == nil || *got.VectorID != vid {
		t.Fatalf("vector id not persisted: %v", got.VectorID)
	}
	if got.UpdatedAt.Before(seeded.UpdatedAt) {
		t.Fatal("updated_at went backwards")
	}

	if err := repo.Update(dbc, 9999, map[string]any{"vector_id": uuid.New()}); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

func TestQuestionPartRepoDelete(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewQuestionPartRepo(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedQuestionPart(t, dbc.Ctx, tx, "OOP", nil)
	if err := repo.Delete(dbc, seeded.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(dbc, seeded.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(dbc, seeded.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("double delete must be ErrNotFound, got %v", err)
	}
}
