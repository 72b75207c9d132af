package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/infra/cdk"
)

const projectPrefix = "bwsc"

func main() {
	defer jsii.Close()
	app := awscdk.NewApp(nil)

	bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{
		Prefix: projectPrefix + "-",
	},
		cdk.NewShared,
		cdk.NewDeployment,
	)

	app.Synth(nil)
}
