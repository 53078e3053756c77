package pipeline

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_SaveSummarizes(t *testing.T) {
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	now := func() time.Time { return clock }
	r := NewReport("run-1", Request{Topic: "agua", Level: "scopus"}, "/tmp/out", now)

	h := r.BeginStage("title")
	r.EndStage(h, "", map[string]float64{"blocks": 1}, []string{" ", "ok"}, nil)
	h = r.BeginStage("methodology")
	r.EndStage(h, "ok", nil, nil, errors.New("boom"))
	r.AddSignal("missing_block", "citations", "warning", "block pais missing", 0)
	r.AddSignal("simulated_references", "citations", "info", "simulated", 0)
	r.AddBlockMetric(BlockMetric{Key: "contexto", QualityScore: 1})
	r.AddBlockMetric(BlockMetric{Key: "pais", QualityScore: 0.4})

	path := filepath.Join(t.TempDir(), reportFileName)
	require.NoError(t, r.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.Summary.StageCount)
	assert.Equal(t, 1, got.Summary.FailedStages)
	assert.Equal(t, 2, got.Summary.BlockCount)
	assert.Equal(t, 1, got.Summary.LowQualityBlocks)
	assert.InDelta(t, 0.7, got.Summary.AvgQuality, 0.001)
	assert.Equal(t, 1, got.Summary.SignalsBySeverity["warning"])
	assert.Equal(t, 1, got.Summary.SignalsBySeverity["info"])
	assert.Equal(t, "error", got.Stages[1].Status)
	assert.Equal(t, "boom", got.Stages[1].Error)
	assert.ElementsMatch(t, []string{"missing_block", "simulated_references"}, r.SignalCodes())
}

func TestAssessBlock(t *testing.T) {
	long := "La gestión hídrica comunitaria articula instituciones locales, usuarios y organizaciones de base para sostener el acceso al agua en territorios rurales con escasa infraestructura y alta vulnerabilidad climática."

	q := assessBlock(KeyContext, long, "Resiliencia urbana y movilidad")
	assert.Equal(t, 1.0, q.Score)
	assert.Empty(t, q.Issues)

	q = assessBlock(KeyContext, "", "x")
	assert.Equal(t, []string{"empty_content"}, q.Issues)

	q = assessBlock(ConceptKey(1, 1), "En este artículo la variable es breve.", "x")
	assert.Contains(t, q.Issues, "first_person")
	assert.Contains(t, q.Issues, "mentions_variable")
	assert.Contains(t, q.Issues, "too_short")
	assert.Less(t, q.Score, lowQualityThreshold)

	q = assessBlock(KeyTitle, "Gestión hídrica", "Gestión hídrica")
	assert.NotContains(t, q.Issues, "too_short")
	assert.NotContains(t, q.Issues, "title_echo")
}
