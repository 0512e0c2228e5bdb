// datetrans trains a date translator, from "yy-mm-dd" to "dd/Mon/yyyy", on a generated corpus and
// translates the dates given as arguments.
//
// With --ui it uses github.com/charmbracelet libraries to make for a pretty command-line UI, where
// dates can be typed in, one per line.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

var flagUI = flag.Bool("ui", false, "Start an interactive UI to translate dates after training.")

// defaultDates are translated when no dates are given as arguments.
var defaultDates = []string{"70-01-01", "99-12-31", "31-04-26", "04-07-04"}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var app *App
	err := exceptions.TryCatch[error](func() { app = BuildApp() })
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %+v", err)
		os.Exit(1)
	}

	if *flagUI {
		p := tea.NewProgram(newUIModel(app))
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Alas, there's been an error: %+v", err)
			os.Exit(1)
		}
		return
	}

	sources := flag.Args()
	if len(sources) == 0 {
		sources = defaultDates
	}
	targets, err := app.Translate(sources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %+v", err)
		os.Exit(1)
	}
	for ii, source := range sources {
		fmt.Printf("%s -> %s\n", source, targets[ii])
	}
}
