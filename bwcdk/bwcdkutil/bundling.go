package bwcdkutil

import (
	"github.com/aws/aws-cdk-go/awscdklambdagoalpha/v2"
	"github.com/aws/jsii-runtime-go"
)

// ReproducibleGoBundling returns bundling options that produce byte-identical Go
// binaries for identical sources, so unchanged functions keep their asset hash
// and are not redeployed.
func ReproducibleGoBundling() *awscdklambdagoalpha.BundlingOptions {
	return &awscdklambdagoalpha.BundlingOptions{
		GoBuildFlags: jsii.Strings(
			"-trimpath",
			"-ldflags=-buildid=",
			"-buildvcs=false",
		),
		Environment: &map[string]*string{
			"CGO_ENABLED": jsii.String("0"),
			"GOTOOLCHAIN": jsii.String("local"),
		},
	}
}
