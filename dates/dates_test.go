package dates

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gomlx/datetrans/vocab"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	require.Equal(t, []string{"7", "0", "-", "0", "1", "-", "0", "1"}, SourceTokens("70-01-01"))
	require.Equal(t, []string{"0", "1", "/", "Jan", "/", "1", "9", "7", "0"}, TargetTokens("01/Jan/1970"))
	require.Equal(t, []string{"0", "1"}, TargetTokens("01"))
	require.Equal(t, []string{"0", "1", "/", "Fév", "/", "2", "0"}, TargetTokens("01/Fév/20"))
	require.Equal(t, []string{"é", "t", "é"}, TargetTokens("été"))
	for _, token := range TargetTokens("01/Fév/20") {
		require.True(t, utf8.ValidString(token), "invalid token %q", token)
	}
}

func TestCodec(t *testing.T) {
	corpus := &Corpus{Sources: []string{"70-01-01"}, Targets: []string{"01/Jan/1970"}}
	v, err := BuildVocabulary(corpus)
	require.NoError(t, err)
	fmt.Printf("%s\n", v)
	codec, err := NewCodec(v)
	require.NoError(t, err)

	source, err := codec.EncodeSource("70-01-01")
	require.NoError(t, err)
	require.Len(t, source, 8)
	require.Equal(t, []int{10, 3, 1, 3, 4, 1, 3, 4}, source)

	target, err := codec.EncodeTarget("01/Jan/1970")
	require.NoError(t, err)
	require.Len(t, target, 11)
	tokens := make([]string, len(target))
	for ii, id := range target {
		tokens[ii], err = v.Token(id)
		require.NoError(t, err)
	}
	require.Equal(t, []string{vocab.StartToken, "0", "1", "/", "Jan", "/", "1", "9", "7", "0", vocab.EndToken}, tokens)
	require.Equal(t, 14, codec.BeginningOfSentenceId())
	require.Equal(t, 13, codec.EndOfSentenceId())
	require.Equal(t, 0, codec.PadId())

	text, err := codec.Decode(append(target[1:], 0, 0, 5))
	require.NoError(t, err)
	require.Equal(t, "01/Jan/1970<EOS>", text)
	text, err = codec.DecodeTarget(target)
	require.NoError(t, err)
	require.Equal(t, "01/Jan/1970", text)

	// Month never seen in the corpus.
	_, err = codec.EncodeTarget("01/Feb/1970")
	var unknownErr *vocab.UnknownTokenError
	require.ErrorAs(t, err, &unknownErr)
	require.Equal(t, "Feb", unknownErr.Token)
}

func TestVocabularyIds(t *testing.T) {
	corpus := &Corpus{
		Sources: []string{"31-04-26", "31-08-26"},
		Targets: []string{"26/Apr/2031", "26/Aug/2031"},
	}
	v, err := BuildVocabulary(corpus)
	require.NoError(t, err)
	codec, err := NewCodec(v)
	require.NoError(t, err)
	target, err := codec.EncodeTarget("26/Apr/2031")
	require.NoError(t, err)
	require.Equal(t, []int{14, 5, 9, 2, 15, 2, 5, 3, 6, 4, 13}, target)
	source, err := codec.EncodeSource("31-04-26")
	require.NoError(t, err)
	require.Equal(t, []int{6, 4, 1, 3, 7, 1, 5, 9}, source)
}

func TestGenerate(t *testing.T) {
	c1 := Generate(rand.New(rand.NewSource(1)), 50)
	c2 := Generate(rand.New(rand.NewSource(1)), 50)
	require.Equal(t, c1, c2)
	require.Equal(t, 50, c1.Len())
	for ii := range c1.Len() {
		src, err := time.Parse(SourceLayout, c1.Sources[ii])
		require.NoError(t, err)
		tgt, err := time.Parse(TargetLayout, c1.Targets[ii])
		require.NoError(t, err)
		require.Equal(t, src, tgt, "pair #%d: %q -> %q", ii, c1.Sources[ii], c1.Targets[ii])
		require.True(t, tgt.Year() >= 1974 && tgt.Year() <= 2034)
	}

	v1, err := BuildVocabulary(c1)
	require.NoError(t, err)
	v2, err := BuildVocabulary(c2)
	require.NoError(t, err)
	require.Equal(t, v1.Tokens(), v2.Tokens())

	_, err = BuildVocabulary(&Corpus{})
	var emptyErr *vocab.EmptyCorpusError
	require.ErrorAs(t, err, &emptyErr)
}

func TestNewDataset(t *testing.T) {
	corpus := Generate(rand.New(rand.NewSource(1)), 20)
	v, err := BuildVocabulary(corpus)
	require.NoError(t, err)
	codec, err := NewCodec(v)
	require.NoError(t, err)
	ds, err := NewDataset(corpus, codec)
	require.NoError(t, err)
	require.Equal(t, 20, ds.Len())
	require.Equal(t, 8, ds.SourceLength)
	require.Equal(t, 11, ds.TargetLength)
	_, target, targetLength := ds.Get(3)
	require.Equal(t, 10, targetLength)
	text, err := codec.DecodeTarget(target)
	require.NoError(t, err)
	require.Equal(t, corpus.Targets[3], text)
}
