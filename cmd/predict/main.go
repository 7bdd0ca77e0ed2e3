// Command predict prints the top-k labels for each line of input.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/djinn/lightLM"
)

func main() {
	var cli struct {
		Model     string  `name:"model" usage:"trained model file"`
		Input     string  `name:"input" usage:"input file, one document per line (default stdin)"`
		K         int     `name:"k" usage:"number of predictions per line"`
		Threshold float64 `name:"threshold" usage:"minimum score to report"`
	}
	cli.K = 1
	easy.ParseFlagsAndArgs(&cli)

	if cli.Model == "" {
		glog.Fatal("-model is required")
	}

	model, dict, err := fslm.LoadModel(cli.Model)
	if err != nil {
		glog.Fatal(err)
	}

	in := os.Stdin
	if cli.Input != "" {
		f, err := os.Open(cli.Input)
		if err != nil {
			glog.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	state := fslm.NewState(model.InputMatrix().Cols(), model.OutputMatrix().Rows(), 0)
	r := bufio.NewReader(in)
	for {
		words, _, _, lerr := dict.GetLine(r, nil)
		if len(words) > 0 {
			for _, p := range model.Predict(words, cli.K, float32(cli.Threshold), state) {
				fmt.Printf("%s %g\n", dict.LabelString(p.Label), p.Score)
			}
		}
		if lerr != nil {
			break
		}
	}
}
