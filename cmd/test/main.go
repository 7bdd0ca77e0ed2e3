// Command test evaluates a trained model against a labeled corpus and
// reports precision/recall/F1.
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
		Model string `name:"model" usage:"trained model file"`
		Input string `name:"input" usage:"labeled test corpus"`
		K     int    `name:"k" usage:"number of predictions per example"`
		Threshold float64 `name:"threshold" usage:"minimum score to count as a prediction"`
	}
	cli.K = 1
	easy.ParseFlagsAndArgs(&cli)

	if cli.Model == "" || cli.Input == "" {
		glog.Fatal("-model and -input are required")
	}

	model, dict, err := fslm.LoadModel(cli.Model)
	if err != nil {
		glog.Fatal(err)
	}

	f, err := os.Open(cli.Input)
	if err != nil {
		glog.Fatal(err)
	}
	defer f.Close()

	meter := fslm.NewMeter()
	r := bufio.NewReader(f)
	state := fslm.NewState(model.InputMatrix().Cols(), model.OutputMatrix().Rows(), 0)
	for {
		words, labels, _, lerr := dict.GetLine(r, nil)
		if len(words) > 0 && len(labels) > 0 {
			predicted := model.Predict(words, cli.K, float32(cli.Threshold), state)
			meter.Log(labels, predicted)
		}
		if lerr != nil {
			break
		}
	}

	fmt.Printf("N\t%d\n", meter.NExamples())
	fmt.Printf("P@%d\t%.4f\n", cli.K, meter.Precision())
	fmt.Printf("R@%d\t%.4f\n", cli.K, meter.Recall())
	fmt.Printf("F1\t%.4f\n", meter.F1())
}
