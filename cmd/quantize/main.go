// Command quantize replaces a trained model's dense input matrix (and,
// with -qout, its output matrix) with a product-quantized one, trading
// some accuracy for a much smaller file on disk.
package main

import (
	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/djinn/lightLM"
)

func main() {
	var cli struct {
		Input  string `name:"input" usage:"trained (dense) model file"`
		Output string `name:"output" usage:"path to write the quantized model"`
		Dsub   int    `name:"dsub" usage:"subvector length for product quantization"`
		Qnorm  bool   `name:"qnorm" usage:"also quantize row norms separately"`
		Qout   bool   `name:"qout" usage:"quantize the output matrix too (supervised models only)"`
	}
	cli.Dsub = 2
	easy.ParseFlagsAndArgs(&cli)

	if cli.Input == "" || cli.Output == "" {
		glog.Fatal("-input and -output are required")
	}

	model, dict, err := fslm.LoadModel(cli.Input)
	if err != nil {
		glog.Fatal(err)
	}

	args := model.Args()
	args.Qout = cli.Qout
	args.Qnorm = cli.Qnorm
	args.Dsub = cli.Dsub
	if err := args.Validate(); err != nil {
		glog.Fatal(err)
	}

	rng := fslm.NewRand(args.Seed)
	wi, ok := model.InputMatrix().(*fslm.DenseMatrix)
	if !ok {
		glog.Fatal("input matrix is already quantized")
	}
	qwi, err := fslm.NewQuantizedMatrix(wi, args.Dsub, args.Qnorm, rng)
	if err != nil {
		glog.Fatal(err)
	}

	wo := model.OutputMatrix()
	if args.Qout {
		dense, ok := wo.(*fslm.DenseMatrix)
		if !ok {
			glog.Fatal("output matrix is already quantized")
		}
		qwo, err := fslm.NewQuantizedMatrix(dense, args.Dsub, args.Qnorm, rng)
		if err != nil {
			glog.Fatal(err)
		}
		wo = qwo
	}

	final := fslm.NewModelForArgs(qwi, wo, lossForArgs(args, wo, dict), args)
	if err := fslm.SaveModel(cli.Output, final, dict); err != nil {
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
