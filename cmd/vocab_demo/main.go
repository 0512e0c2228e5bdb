// vocab_demo builds the word2vec and MRPC datasets and prints their vocabulary sizes and a few
// sampled examples.
//
// The word2vec corpus is a text file with one sentence per line. The MRPC files are downloaded
// into --mrpc_dir if --download is set, otherwise they are expected to be there already.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/datetrans/download"
	"github.com/gomlx/datetrans/mrpc"
	"github.com/gomlx/datetrans/vocab"
	"github.com/gomlx/datetrans/w2v"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagW2VCorpus  = flag.String("w2v_corpus", "", "Text file with one sentence per line for the word2vec dataset. Empty to skip it.")
	flagMethod     = flag.String("method", "skip_gram", "Word2vec method: skip_gram or cbow.")
	flagSkipWindow = flag.Int("skip_window", 2, "Number of words on each side of the center word.")
	flagMRPCDir    = flag.String("mrpc_dir", "", "Directory with the MRPC files. Empty to skip MRPC.")
	flagDownload   = flag.Bool("download", false, "Download the MRPC files into --mrpc_dir, if not there yet.")
	flagRows       = flag.Int("rows", 0, "If > 0, read only the first rows of each MRPC file.")
	flagSeed       = flag.Int64("seed", 1, "Random seed used to sample examples.")
	flagNumSamples = flag.Int("samples", 3, "Number of sampled examples to print.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	err := exceptions.TryCatch[error](func() {
		rng := rand.New(rand.NewSource(*flagSeed))
		if *flagW2VCorpus != "" {
			demoW2V(rng)
		}
		if *flagMRPCDir != "" {
			demoMRPC(rng)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %+v", err)
		os.Exit(1)
	}
}

func readLines(filePath string) []string {
	f := must.M1(os.Open(filePath))
	defer func() { _ = f.Close() }()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	must.M(errors.Wrapf(scanner.Err(), "reading %q", filePath))
	return lines
}

func demoW2V(rng *rand.Rand) {
	method := must.M1(w2v.ParseMethod(*flagMethod))
	corpus := readLines(data.ReplaceTildeInDir(*flagW2VCorpus))
	ds := must.M1(w2v.Process(corpus, *flagSkipWindow, method))
	fmt.Printf("word2vec (%s): %s sentences, %s words in vocabulary, %s examples\n",
		method, humanize.Comma(int64(len(corpus))), humanize.Comma(int64(ds.Vocab.Len())),
		humanize.Comma(int64(ds.Len())))
	if ds.Len() == 0 {
		return
	}
	x, y := ds.Sample(rng, *flagNumSamples)
	for ii := range y {
		context := make([]string, len(x[ii]))
		for jj, id := range x[ii] {
			context[jj] = must.M1(ds.Vocab.Token(id))
		}
		fmt.Printf("\t%v -> %s\n", context, must.M1(ds.Vocab.Token(y[ii])))
	}
}

func demoMRPC(rng *rand.Rand) {
	dir := data.ReplaceTildeInDir(*flagMRPCDir)
	if *flagDownload {
		trainPath, testPath, err := mrpc.Download(download.New(dir))
		must.M(err)
		klog.Infof("MRPC files in %q and %q", trainPath, testPath)
	}
	d := must.M1(mrpc.Load(dir, *flagRows))
	fmt.Printf("MRPC: %s train pairs, %s test pairs, %s tokens in vocabulary\n",
		humanize.Comma(int64(d.Train.Len())), humanize.Comma(int64(d.Test.Len())),
		humanize.Comma(int64(d.Vocab.Len())))

	pairs := must.M1(mrpc.NewPairData(d))
	fmt.Printf("pairs: %d padded to %d, mask id %d\n", pairs.Len(), pairs.MaxLen, pairs.MaskId())
	batch := pairs.Sample(rng, *flagNumSamples)
	for ii := range batch.X {
		fmt.Printf("\tsame=%d lengths=%v %s\n", batch.IsSame[ii], batch.Lengths[ii], decode(d.Vocab, batch.X[ii]))
	}

	singles := must.M1(mrpc.NewSingleData(d))
	fmt.Printf("sentences: %d padded to %d\n", singles.Len(), singles.MaxLen)
	for _, x := range singles.Sample(rng, *flagNumSamples) {
		fmt.Printf("\t%s\n", decode(d.Vocab, x))
	}
}

// decode the ids as space separated words, dropping the padding.
func decode(v *vocab.Vocabulary, ids []int) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == vocab.PadId {
			continue
		}
		words = append(words, must.M1(v.Token(id)))
	}
	return strings.Join(words, " ")
}
