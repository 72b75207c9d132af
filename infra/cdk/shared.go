package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkdomain"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkkms"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkparams"
)

// zoneNameContextKey optionally names the hosted zone the APIs are served from.
const zoneNameContextKey = "bwsc-zone-name"

// Shared holds the resources every deployment uses.
type Shared struct {
	QueueKey awskms.Key
	// Domain is nil unless a zone name is configured.
	Domain bwcdkdomain.Domain
}

func NewShared(stack awscdk.Stack) *Shared {
	shared := &Shared{}
	shared.QueueKey = bwcdkkms.BuildEncryptionKey(stack, "QueueKey", nil)

	// Tooling outside of CDK reads the key from the parameter store.
	bwcdkparams.Store(stack, "QueueKeyArnParameter", "shared", "queue-key-arn",
		shared.QueueKey.KeyArn())

	if zoneName, ok := stack.Node().TryGetContext(jsii.String(zoneNameContextKey)).(string); ok && zoneName != "" {
		shared.Domain = bwcdkdomain.New(stack, bwcdkdomain.Props{ZoneName: jsii.String(zoneName)})
	}

	return shared
}
