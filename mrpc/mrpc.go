// Package mrpc loads the Microsoft Research Paraphrase Corpus (MRPC) and builds sentence-pair and
// single-sentence datasets from it.
//
// Files are tab-separated, with a header line and the columns
// "Quality", "#1 ID", "#2 ID", "#1 String" and "#2 String".
package mrpc

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/datetrans/download"
	"github.com/gomlx/datetrans/vocab"
	"github.com/pkg/errors"
)

const (
	TrainURL = "https://mofanpy.com/static/files/MRPC/msr_paraphrase_train.txt"
	TestURL  = "https://mofanpy.com/static/files/MRPC/msr_paraphrase_test.txt"

	// QuoteToken replaces double quotes in the downloaded files, so they are not taken as CSV quoting.
	QuoteToken = "<QUOTE>"

	// NumToken replaces numbers in the sentences.
	NumToken = "<NUM>"
)

// Download the MRPC train and test files into the cache, if not there yet.
//
// Double quotes are replaced by QuoteToken in the downloaded files. The given cache is not modified.
func Download(cache *download.Cache) (trainPath, testPath string, err error) {
	c := *cache
	c.Transform = func(contents []byte) []byte {
		return bytes.ReplaceAll(contents, []byte(`"`), []byte(QuoteToken))
	}
	if trainPath, err = c.Get(TrainURL); err != nil {
		return
	}
	testPath, err = c.Get(TestURL)
	return
}

// Split holds one of the files (train or test).
type Split struct {
	IsSame []int

	// S1 and S2 are the standardized sentences, and S1Ids and S2Ids their word ids.
	S1, S2       []string
	S1Ids, S2Ids [][]int
}

// Len returns the number of sentence pairs.
func (s *Split) Len() int { return len(s.IsSame) }

// Data holds the train and test splits, encoded with a vocabulary built from both.
type Data struct {
	Train, Test *Split

	// Vocab has the words sorted from id 1, PadToken at 0, followed by MaskToken, SepToken and StartToken.
	Vocab *vocab.Vocabulary
}

var (
	reDashes     = regexp.MustCompile(`[—–―]`)
	reNumber     = regexp.MustCompile(` \d+(,\d+)?(\.\d+)? `)
	reNumberDash = regexp.MustCompile(` \d+-+?\d*`)
)

// Standardize replaces dash variants by "-" and numbers by NumToken, and trims spaces.
func Standardize(text string) string {
	text = reDashes.ReplaceAllString(text, "-")
	text = reNumber.ReplaceAllString(text, " "+NumToken+" ")
	text = reNumberDash.ReplaceAllString(text, " "+NumToken+"-")
	return strings.TrimSpace(text)
}

// Load the train and test files from dir: files with "train" in their name go to the train split,
// the others to the test split. If maxRows > 0, only the first maxRows rows of each file are read.
func Load(dir string, maxRows int) (*Data, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list MRPC directory %q", dir)
	}
	d := &Data{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".downloading") {
			continue
		}
		filePath := path.Join(dir, entry.Name())
		split, err := readSplit(filePath, maxRows)
		if err != nil {
			return nil, err
		}
		if strings.Contains(entry.Name(), "train") {
			d.Train = split
		} else {
			d.Test = split
		}
	}
	if d.Train == nil || d.Test == nil {
		return nil, errors.Errorf("MRPC directory %q must hold both a train and a test file", dir)
	}

	b := vocab.NewBuilder()
	b.Appended = []string{vocab.MaskToken, vocab.SepToken, vocab.StartToken}
	for _, split := range []*Split{d.Train, d.Test} {
		b.AddCorpus(split.S1, vocab.Words)
		b.AddCorpus(split.S2, vocab.Words)
	}
	if d.Vocab, err = b.Build(); err != nil {
		return nil, errors.WithMessagef(err, "building MRPC vocabulary from %q", dir)
	}
	for _, split := range []*Split{d.Train, d.Test} {
		if split.S1Ids, err = encodeAll(d.Vocab, split.S1); err != nil {
			return nil, err
		}
		if split.S2Ids, err = encodeAll(d.Vocab, split.S2); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func encodeAll(v *vocab.Vocabulary, sentences []string) ([][]int, error) {
	ids := make([][]int, len(sentences))
	var err error
	for ii, sentence := range sentences {
		if ids[ii], err = v.Encode(vocab.Words(sentence)); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// readSplit reads one MRPC file, lower-casing and standardizing the sentences.
func readSplit(filePath string, maxRows int) (*Split, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open MRPC file %q", filePath)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header of MRPC file %q", filePath)
	}
	s1Col, s2Col := -1, -1
	for ii, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "#1 String":
			s1Col = ii
		case "#2 String":
			s2Col = ii
		}
	}
	if s1Col < 0 || s2Col < 0 {
		return nil, errors.Errorf("MRPC file %q is missing the \"#1 String\" or \"#2 String\" columns", filePath)
	}

	split := &Split{}
	for maxRows <= 0 || split.Len() < maxRows {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read MRPC file %q", filePath)
		}
		if len(record) <= max(s1Col, s2Col) {
			return nil, errors.Errorf("MRPC file %q, row %d: expected %d columns, got %d",
				filePath, split.Len()+1, len(header), len(record))
		}
		isSame, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "MRPC file %q, row %d: invalid quality value", filePath, split.Len()+1)
		}
		split.IsSame = append(split.IsSame, isSame)
		split.S1 = append(split.S1, Standardize(strings.ToLower(record[s1Col])))
		split.S2 = append(split.S2, Standardize(strings.ToLower(record[s2Col])))
	}
	return split, nil
}
