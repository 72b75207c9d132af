// Package bwsclambdasqs lets a Lambda function send messages to an SQS queue.
package bwsclambdasqs

import (
	"slices"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/samber/lo"
)

// DefaultQueueEnvironmentVariableName holds the queue URL in the function environment.
const DefaultQueueEnvironmentVariableName = "SQS_QUEUE_URL"

// Queue permissions that can be granted to the function.
const (
	PermissionSend    = "Send"
	PermissionReceive = "Receive"
	PermissionPurge   = "Purge"
	PermissionAll     = "All"
)

// Props configures the LambdaToSqs construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	ExistingQueueObj      awssqs.Queue
	QueueProps            *awssqs.QueueProps
	DeployDeadLetterQueue *bool
	DeadLetterQueueProps  *awssqs.QueueProps
	MaxReceiveCount       *float64
	// EnableQueuePurging adds the Purge permission.
	EnableQueuePurging *bool
	// QueuePermissions default to Send.
	QueuePermissions []string
	// QueueEnvironmentVariableName defaults to DefaultQueueEnvironmentVariableName.
	QueueEnvironmentVariableName *string

	EnableEncryptionWithCustomerManagedKey *bool
	EncryptionKey                          awskms.Key
	EncryptionKeyProps                     *awskms.KeyProps

	// ExistingVpc, DeployVpc and VpcProps place the function in a VPC with an SQS endpoint.
	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
}

// LambdaToSqs exposes the resources of the pattern.
type LambdaToSqs interface {
	LambdaFunction() awslambda.Function
	SqsQueue() awssqs.Queue
	DeadLetterQueue() *awssqs.DeadLetterQueue
	Vpc() awsec2.IVpc
}

type lambdaToSqs struct {
	fn    awslambda.Function
	queue awssqs.Queue
	dlq   *awssqs.DeadLetterQueue
	vpc   awsec2.IVpc
}

// New creates the function and the queue, grants the permissions and passes the
// queue URL to the function. It panics when props are contradictory.
func New(scope constructs.Construct, id string, props Props) LambdaToSqs {
	bwcdkutil.MustCheck(CheckLambdaToSqsProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &lambdaToSqs{}

	vpc, err := bwcdkvpc.ObtainVpc(scope, bwcdkvpc.PatternVpcProps{
		ExistingVpc: props.ExistingVpc,
		DeployVpc:   props.DeployVpc,
		VpcProps:    props.VpcProps,
		Endpoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointSQS},
	})
	if err != nil {
		panic(err)
	}
	con.vpc = vpc

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
		Vpc:                 vpc,
	}, "")

	con.dlq = bwcdksqs.BuildDeadLetterQueue(scope, "DeadLetterQueue", bwcdksqs.BuildDeadLetterQueueProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		MaxReceiveCount:       props.MaxReceiveCount,
	})

	con.queue = bwcdksqs.BuildQueue(scope, "Queue", bwcdksqs.BuildQueueProps{
		ExistingQueueObj:                       props.ExistingQueueObj,
		QueueProps:                             props.QueueProps,
		DeadLetterQueue:                        con.dlq,
		EnableEncryptionWithCustomerManagedKey: props.EnableEncryptionWithCustomerManagedKey,
		EncryptionKey:                          props.EncryptionKey,
		EncryptionKeyProps:                     props.EncryptionKeyProps,
	}).Queue

	envName := DefaultQueueEnvironmentVariableName
	if props.QueueEnvironmentVariableName != nil {
		envName = *props.QueueEnvironmentVariableName
	}
	con.fn.AddEnvironment(jsii.String(envName), con.queue.QueueUrl(), nil)

	GrantQueuePermissions(con.queue, con.fn, permissions(props))

	return con
}

func (c *lambdaToSqs) LambdaFunction() awslambda.Function { return c.fn }
func (c *lambdaToSqs) SqsQueue() awssqs.Queue { return c.queue }
func (c *lambdaToSqs) DeadLetterQueue() *awssqs.DeadLetterQueue { return c.dlq }
func (c *lambdaToSqs) Vpc() awsec2.IVpc { return c.vpc }

func permissions(props Props) []string {
	perms := props.QueuePermissions
	if len(perms) == 0 {
		perms = []string{PermissionSend}
	}
	if props.EnableQueuePurging != nil && *props.EnableQueuePurging {
		perms = append(slices.Clone(perms), PermissionPurge)
	}
	return lo.Uniq(lo.Map(perms, func(p string, _ int) string { return strings.ToLower(p) }))
}

// GrantQueuePermissions grants fn the named permissions on queue. Names are matched
// case-insensitively.
func GrantQueuePermissions(queue awssqs.IQueue, fn awslambda.IFunction, perms []string) {
	for _, perm := range perms {
		switch strings.ToLower(perm) {
		case "send":
			queue.GrantSendMessages(fn)
		case "receive":
			queue.GrantConsumeMessages(fn)
		case "purge":
			queue.GrantPurge(fn)
		case "all":
			queue.Grant(fn, jsii.String("sqs:*"))
		}
	}
}

// CheckLambdaToSqsProps validates the props of the construct.
func CheckLambdaToSqsProps(props Props) error {
	var c bwcdkutil.Checker

	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdksqs.CheckSqsProps(bwcdksqs.SqsProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		QueueProps:            props.QueueProps,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		EncryptionKey:         props.EncryptionKey,
		EncryptionKeyProps:    props.EncryptionKeyProps,
	}))
	c.Add(bwcdkvpc.CheckVpcProps(bwcdkvpc.VpcPropsSet{
		ExistingVpc: props.ExistingVpc,
		VpcProps:    props.VpcProps,
		DeployVpc:   props.DeployVpc,
	}))

	valid := []string{"send", "receive", "purge", "all"}
	for _, perm := range props.QueuePermissions {
		if !lo.Contains(valid, strings.ToLower(perm)) {
			c.Fail("Invalid queue permission submitted - " + perm)
		}
	}

	return c.Err()
}
