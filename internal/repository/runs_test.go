package repository

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func openTestRepo(t *testing.T) *RunRepository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleRun(created time.Time) *entity.ExtractionRun {
	amt := decimal.RequireFromString("1234.56")
	return &entity.ExtractionRun{
		Filename:      gofakeit.Word() + ".pdf",
		MIMEType:      "application/pdf",
		ContentSHA256: gofakeit.LetterN(64),
		Method:        "pdf-text",
		ModelUsed:     true,
		States:        []string{"START", "ACQUIRED", "NORMALIZED", "AI_ATTEMPTED", "MERGED", "DONE"},
		Fields: entity.ExtractedInvoiceFields{
			InvoiceNumber: "INV-" + gofakeit.DigitN(6),
			Amount:        &amt,
			Currency:      "USD",
			Provider:      "AWS",
			BillingDate:   "2024-03-15",
			Category:      "Cloud Services",
		},
		Sources:    map[string]entity.FieldSource{"amount": entity.SourcePattern, "provider": entity.SourceModel},
		DurationMS: 42,
		CreatedAt:  created,
	}
}

func TestSaveAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	run := sampleRun(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, run))
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Filename, got.Filename)
	assert.Equal(t, run.States, got.States)
	assert.Equal(t, run.Sources, got.Sources)
	assert.True(t, got.ModelUsed)
	assert.Equal(t, int64(42), got.DurationMS)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.Fields.Amount)
	assert.True(t, run.Fields.Amount.Equal(*got.Fields.Amount))
	assert.Equal(t, run.Fields.InvoiceNumber, got.Fields.InvoiceNumber)
}

func TestGetUnknown(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveRejectsBadID(t *testing.T) {
	repo := openTestRepo(t)
	run := sampleRun(time.Now())
	run.ID = "abc"
	assert.ErrorIs(t, repo.Save(context.Background(), run), common.ErrInvalidInput)
}

func TestSaveWithoutModelOrSources(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	run := &entity.ExtractionRun{Filename: "x.txt", ContentSHA256: "00", Method: "filename",
		Fields: entity.ExtractedInvoiceFields{Currency: "USD"}}
	require.NoError(t, repo.Save(ctx, run))
	assert.False(t, run.CreatedAt.IsZero())

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Sources)
	assert.Nil(t, got.Fields.Amount)
	assert.Empty(t, got.States)
}

func TestRecentNewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		run := sampleRun(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, repo.Save(ctx, run))
		ids = append(ids, run.ID)
	}

	got, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, []string{got[0].ID, got[1].ID, got[2].ID})

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestHealthCheck(t *testing.T) {
	repo := openTestRepo(t)
	assert.NoError(t, repo.HealthCheck(context.Background(), time.Second))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "oracle"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", postgresDialect.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", sqliteDialect.rebind("a = ?"))
}
