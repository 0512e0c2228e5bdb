package samplers

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// Ids of testVocab.
const (
	padId = iota
	endId
	startId
	aId
	bId
	vocabSize
)

var testTokens = []string{"_", "$", "^", "a", "b"}

type testVocab struct{}

func (testVocab) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		idx := strings.IndexRune(strings.Join(testTokens, ""), r)
		if idx < 0 {
			return nil, errors.Errorf("unknown %q", r)
		}
		ids = append(ids, idx)
	}
	return ids, nil
}

func (testVocab) Decode(ids []int) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(testTokens[id])
		if id == endId {
			break
		}
	}
	return sb.String(), nil
}

func (testVocab) BeginningOfSentenceId() int { return startId }
func (testVocab) EndOfSentenceId() int       { return endId }
func (testVocab) PadId() int                 { return padId }

// scriptedModel emits, for each example, script[step] (or a uniform distribution after the script
// ends), and records the inputs it was fed.
type scriptedModel struct {
	script [][]int
	inputs [][]int
}

type scriptedState struct{ step int }

func (m *scriptedModel) Encode(sources [][]int) (State, error) {
	if len(sources) != len(m.script) {
		return nil, errors.Errorf("expected %d sources", len(m.script))
	}
	return scriptedState{}, nil
}

func (m *scriptedModel) Step(state State, inputs []int) (State, [][]float64, error) {
	st := state.(scriptedState)
	m.inputs = append(m.inputs, append([]int(nil), inputs...))
	probs := make([][]float64, len(inputs))
	for ii := range probs {
		dist := make([]float64, vocabSize)
		if st.step < len(m.script[ii]) {
			dist[m.script[ii][st.step]] = 1
		} else {
			for jj := range dist {
				dist[jj] = 1.0 / vocabSize
			}
		}
		probs[ii] = dist
	}
	return scriptedState{step: st.step + 1}, probs, nil
}

func TestArgMax(t *testing.T) {
	require.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.7}))
	require.Equal(t, 1, ArgMax([]float64{0.1, 0.4, 0.4, 0.1}))
	require.Equal(t, 0, ArgMax([]float64{0.25, 0.25, 0.25, 0.25}))
	require.Equal(t, 0, ArgMax([]float64{3}))
}

func TestDecode(t *testing.T) {
	model := &scriptedModel{script: [][]int{
		{aId, endId, bId},
		{bId, bId, bId, bId, bId, bId, bId},
	}}
	s := New(testVocab{}, model, 5)
	outputs, err := s.Decode([][]int{{aId, aId}, {bId, padId}})
	require.NoError(t, err)

	// Always MaxSteps ids, regardless of where the end token shows up.
	require.Equal(t, [][]int{
		{aId, endId, bId, padId, padId}, // Uniform distributions break ties to the lowest id.
		{bId, bId, bId, bId, bId},
	}, outputs)

	// First input is the start token, then the previous outputs.
	require.Equal(t, []int{startId, startId}, model.inputs[0])
	require.Equal(t, []int{aId, bId}, model.inputs[1])
	require.Equal(t, []int{endId, bId}, model.inputs[2])
	require.Len(t, model.inputs, 5)

	outputs, err = s.DecodeMaxSteps(nil, 5)
	require.NoError(t, err)
	require.Empty(t, outputs)
}

func TestSample(t *testing.T) {
	model := &scriptedModel{script: [][]int{
		{aId, endId, bId},
		{bId, aId, endId},
		{bId},
	}}
	s := New(testVocab{}, model, 4)
	texts, err := s.Sample([]string{"ab", "b", "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"a$", "ba$", "b___"}, texts)

	_, err = s.Sample([]string{"x"})
	require.ErrorContains(t, err, "unknown")
}

func TestDecodeNegativeSteps(t *testing.T) {
	model := &scriptedModel{script: [][]int{{aId}}}
	s := New(testVocab{}, model, -1)
	var err error
	require.NotPanics(t, func() { _, err = s.Decode([][]int{{aId}}) })
	require.ErrorContains(t, err, "invalid number of steps")
	require.Empty(t, model.inputs)

	require.NotPanics(t, func() { _, err = s.Sample([]string{"a"}) })
	require.Error(t, err)

	outputs, err := s.DecodeMaxSteps([][]int{{aId}}, 0)
	require.NoError(t, err)
	require.Equal(t, [][]int{{}}, outputs)
}
