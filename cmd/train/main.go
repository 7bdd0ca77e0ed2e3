// Command train fits a fslm model (cbow, skipgram or supervised) on a
// tokenized text corpus.
package main

import (
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/djinn/lightLM"
)

func main() {
	var cli struct {
		Input  string `name:"input" usage:"training corpus, one document per line"`
		Output string `name:"output" usage:"path to write the trained model"`

		Model string `name:"model" usage:"cbow, sg or sup"`
		Loss  string `name:"loss" usage:"softmax, ns, hs or ova"`

		Lr           float64 `name:"lr" usage:"learning rate"`
		LrUpdateRate int     `name:"lrUpdateRate" usage:"changes per thread between lr recomputation"`
		Dim          int     `name:"dim" usage:"embedding dimension"`
		Ws           int     `name:"ws" usage:"context window size"`
		Epoch        int     `name:"epoch" usage:"number of passes over the corpus"`
		MinCount     int     `name:"minCount" usage:"minimum word occurrences"`
		Neg          int     `name:"neg" usage:"negative samples per positive example"`
		WordNgrams   int     `name:"wordNgrams" usage:"max length of word n-grams"`
		Bucket       int     `name:"bucket" usage:"number of subword hash buckets"`
		Minn         int     `name:"minn" usage:"minimum subword n-gram length"`
		Maxn         int     `name:"maxn" usage:"maximum subword n-gram length"`
		Thread       int     `name:"thread" usage:"number of training threads"`
		Seed         int64   `name:"seed" usage:"RNG seed"`
	}

	defaults := fslm.NewArgs()
	cli.Model = string(defaults.Model)
	cli.Loss = string(defaults.Loss)
	cli.Lr = float64(defaults.Lr)
	cli.LrUpdateRate = defaults.LrUpdateRate
	cli.Dim = defaults.Dim
	cli.Ws = defaults.Ws
	cli.Epoch = defaults.Epoch
	cli.MinCount = defaults.MinCount
	cli.Neg = defaults.Neg
	cli.WordNgrams = defaults.WordNgrams
	cli.Bucket = defaults.Bucket
	cli.Minn = defaults.Minn
	cli.Maxn = defaults.Maxn
	cli.Thread = defaults.Thread
	cli.Seed = defaults.Seed

	easy.ParseFlagsAndArgs(&cli)

	if cli.Input == "" || cli.Output == "" {
		glog.Fatal("-input and -output are required")
	}

	args := defaults
	args.Input = cli.Input
	args.Output = cli.Output
	args.Model = fslm.ModelKind(cli.Model)
	args.Loss = fslm.LossKind(cli.Loss)
	args.Lr = float32(cli.Lr)
	args.LrUpdateRate = cli.LrUpdateRate
	args.Dim = cli.Dim
	args.Ws = cli.Ws
	args.Epoch = cli.Epoch
	args.MinCount = cli.MinCount
	args.Neg = cli.Neg
	args.WordNgrams = cli.WordNgrams
	args.Bucket = cli.Bucket
	args.Minn = cli.Minn
	args.Maxn = cli.Maxn
	args.Thread = cli.Thread
	args.Seed = cli.Seed

	if err := args.Validate(); err != nil {
		glog.Fatal(err)
	}

	dict := fslm.NewDictionary(args)
	var buildErr error
	glog.Info("building vocabulary took ", easy.Timed(func() {
		f, err := os.Open(args.Input)
		if err != nil {
			buildErr = err
			return
		}
		defer f.Close()
		buildErr = dict.ReadFromFile(f)
	}))
	if buildErr != nil {
		glog.Fatal(buildErr)
	}
	glog.Infof("vocabulary: %d words, %d labels", dict.NWords(), dict.NLabels())

	osz := dict.NLabels()
	if args.Model != fslm.ModelSup {
		osz = dict.NWords()
	}
	wi := fslm.NewDenseMatrix(dict.NWords()+args.Bucket, args.Dim)
	wi.Uniform(fslm.NewRand(args.Seed), 1.0/float32(args.Dim))
	wo := fslm.NewDenseMatrix(osz, args.Dim)

	model := fslm.NewModelForArgs(wi, wo, lossForArgs(args, wo, dict), args)
	trainer := fslm.NewTrainer(model, dict, args)

	glog.Info("training took ", easy.Timed(func() {
		if err := trainer.Run(args.Input); err != nil {
			glog.Fatal(err)
		}
	}))

	if err := fslm.SaveModel(args.Output, model, dict); err != nil {
		glog.Fatal(err)
	}
}

func lossForArgs(args *fslm.Args, wo fslm.Matrix, dict *fslm.Dictionary) *fslm.Loss {
	switch args.Loss {
	case fslm.LossNS:
		return fslm.NewNSLoss(wo, dict.OutputCounts(), args.Neg)
	case fslm.LossHS:
		return fslm.NewHSLoss(wo, dict.OutputCounts())
	case fslm.LossOVA:
		return fslm.NewOVALoss(wo)
	default:
		return fslm.NewSoftmaxLoss(wo)
	}
}
