package main

import (
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gomlx/datetrans/countmodel"
	"github.com/gomlx/datetrans/dates"
	"github.com/gomlx/datetrans/samplers"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	corpus := dates.Generate(rand.New(rand.NewSource(1)), 64)
	v, err := dates.BuildVocabulary(corpus)
	require.NoError(t, err)
	codec, err := dates.NewCodec(v)
	require.NoError(t, err)
	ds, err := dates.NewDataset(corpus, codec)
	require.NoError(t, err)
	model, err := countmodel.New(countmodel.DefaultConfig(v.Len(), ds.SourceLength, ds.TargetLength-1))
	require.NoError(t, err)
	batch, err := ds.Batch([]int{0, 1, 2, 3})
	require.NoError(t, err)
	_, err = model.TrainBatch(batch)
	require.NoError(t, err)
	return &App{Codec: codec, Dataset: ds, Model: model, Sampler: samplers.New(codec, model, ds.TargetLength-1)}
}

func submit(m *uiModel, text string) *uiModel {
	m.textarea.SetValue(text)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	return updated.(*uiModel)
}

func TestUITranslate(t *testing.T) {
	m := newUIModel(newTestApp(t))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(*uiModel)

	m = submit(m, "70-01-01\n\n 99-12-31 ")
	require.True(t, m.submitted)
	view := m.View()
	require.Contains(t, view, "70-01-01 -> ")
	require.Contains(t, view, "99-12-31 -> ")

	// Enter goes back to editing.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*uiModel)
	require.False(t, m.submitted)
}

func TestUIInvalidDate(t *testing.T) {
	m := newUIModel(newTestApp(t))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(*uiModel)

	// Longer than the sources the model was built for: the error is shown, the UI keeps running.
	m = submit(m, "2024-01-01")
	require.True(t, m.submitted)
	require.Contains(t, m.View(), "Failed to translate")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*uiModel)
	require.False(t, m.submitted)
	m = submit(m, "70-01-01")
	require.False(t, strings.Contains(m.View(), "Failed to translate"))
	require.Contains(t, m.View(), "70-01-01 -> ")
}
