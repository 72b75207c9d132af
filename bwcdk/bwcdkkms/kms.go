// Package bwcdkkms builds customer managed KMS keys with rotation enabled.
package bwcdkkms

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// DefaultKeyID is the construct id used when BuildEncryptionKey receives an empty id.
const DefaultKeyID = "EncryptionKey"

// DefaultEncryptionKeyProps returns the props every generated key starts from.
func DefaultEncryptionKeyProps() *awskms.KeyProps {
	return &awskms.KeyProps{
		EnableKeyRotation: jsii.Bool(true),
	}
}

// BuildEncryptionKey creates a customer managed key. User props are merged over the defaults.
func BuildEncryptionKey(scope constructs.Construct, id string, props *awskms.KeyProps) awskms.Key {
	if id == "" {
		id = DefaultKeyID
	}
	return awskms.NewKey(scope, jsii.String(id),
		bwcdkutil.ConsolidateProps(scope, DefaultEncryptionKeyProps(), props, nil))
}
