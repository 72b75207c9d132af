// Package bwscapigatewaysqs exposes an SQS queue through a REST API with direct
// service integrations for sending, receiving and deleting messages.
package bwscapigatewaysqs

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkapigateway"
	"github.com/basewarphq/bwsc/bwcdk/bwcdksqs"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
)

// Request templates of the three operations.
const (
	DefaultCreateRequestTemplate = "Action=SendMessage&MessageBody=$util.urlEncode(\"$input.body\")"
	DefaultReadRequestTemplate   = "Action=ReceiveMessage"
	DefaultDeleteRequestTemplate = "Action=DeleteMessage&ReceiptHandle=" +
		"$util.urlEncode($input.params('receiptHandle'))"
)

// Operation configures one of the API methods.
type Operation struct {
	// Allow adds the method. Only the read operation is allowed by default.
	Allow *bool
	// RequestTemplate replaces the default template of the operation.
	RequestTemplate string
	// AdditionalRequestTemplates are added for other content types.
	AdditionalRequestTemplates map[string]string
	// IntegrationResponses replace the default integration responses.
	IntegrationResponses *[]*awsapigateway.IntegrationResponse
	// MethodResponses replace the default 200 and 500 method responses.
	MethodResponses *[]*awsapigateway.MethodResponse
}

// Props configures the ApiGatewayToSqs construct.
type Props struct {
	ApiGatewayProps *awsapigateway.RestApiProps
	LogGroupProps   *awslogs.LogGroupProps
	CustomDomain    *bwcdkapigateway.CustomDomain

	ExistingQueueObj      awssqs.Queue
	QueueProps            *awssqs.QueueProps
	DeployDeadLetterQueue *bool
	DeadLetterQueueProps  *awssqs.QueueProps
	MaxReceiveCount       *float64

	// Create is a POST on the root resource sending the body as message.
	Create Operation
	// Read is a GET on the root resource receiving messages.
	Read Operation
	// Delete is a DELETE on /message with the receiptHandle query parameter.
	Delete Operation

	EnableEncryptionWithCustomerManagedKey *bool
	EncryptionKey                          awskms.Key
	EncryptionKeyProps                     *awskms.KeyProps
}

// ApiGatewayToSqs exposes the resources of the pattern.
type ApiGatewayToSqs interface {
	ApiGateway() awsapigateway.RestApiBase
	ApiGatewayRole() awsiam.Role
	ApiGatewayCloudWatchRole() awsiam.Role
	ApiGatewayLogGroup() awslogs.LogGroup
	SqsQueue() awssqs.Queue
	DeadLetterQueue() *awssqs.DeadLetterQueue
}

type apiGatewayToSqs struct {
	api   bwcdkapigateway.Response
	role  awsiam.Role
	queue awssqs.Queue
	dlq   *awssqs.DeadLetterQueue
}

// New creates the queue, the REST API and a role that API Gateway assumes to call SQS.
// It panics when props are contradictory.
func New(scope constructs.Construct, id string, props Props) ApiGatewayToSqs {
	bwcdkutil.MustCheck(CheckApiGatewayToSqsProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &apiGatewayToSqs{}

	con.dlq = bwcdksqs.BuildDeadLetterQueue(scope, "DeadLetterQueue", bwcdksqs.BuildDeadLetterQueueProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		MaxReceiveCount:       props.MaxReceiveCount,
	})

	queue := bwcdksqs.BuildQueue(scope, "Queue", bwcdksqs.BuildQueueProps{
		ExistingQueueObj:                       props.ExistingQueueObj,
		QueueProps:                             props.QueueProps,
		DeadLetterQueue:                        con.dlq,
		EnableEncryptionWithCustomerManagedKey: props.EnableEncryptionWithCustomerManagedKey,
		EncryptionKey:                          props.EncryptionKey,
		EncryptionKeyProps:                     props.EncryptionKeyProps,
	})
	con.queue = queue.Queue

	var err error
	con.api, err = bwcdkapigateway.GlobalRestApi(scope, props.ApiGatewayProps, bwcdkapigateway.Options{
		LogGroupProps: props.LogGroupProps,
		CustomDomain:  props.CustomDomain,
	})
	if err != nil {
		panic(err)
	}

	con.role = awsiam.NewRole(scope, jsii.String("ApiGatewayRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("apigateway.amazonaws.com"), nil),
	})
	if queue.Key != nil {
		queue.Key.GrantEncryptDecrypt(con.role)
	}

	path := *awscdk.Aws_ACCOUNT_ID() + "/" + *con.queue.QueueName()
	root := con.api.Api.Root()

	if isTrue(props.Create.Allow) {
		con.queue.GrantSendMessages(con.role)
		con.addMethod(props.Create, root, "POST", path, DefaultCreateRequestTemplate)
	}
	if props.Read.Allow == nil || *props.Read.Allow {
		con.queue.GrantConsumeMessages(con.role)
		con.addMethod(props.Read, root, "GET", path, DefaultReadRequestTemplate)
	}
	if isTrue(props.Delete.Allow) {
		con.queue.Grant(con.role, jsii.String("sqs:DeleteMessage"))
		con.addMethod(props.Delete, root.AddResource(jsii.String("message"), nil), "DELETE", path,
			DefaultDeleteRequestTemplate)
	}

	return con
}

func (c *apiGatewayToSqs) addMethod(
	op Operation, resource awsapigateway.IResource, method, path, defaultTemplate string,
) {
	template := op.RequestTemplate
	if template == "" {
		template = defaultTemplate
	}

	var methodOpts *awsapigateway.MethodOptions
	if op.MethodResponses != nil {
		methodOpts = &awsapigateway.MethodOptions{MethodResponses: op.MethodResponses}
	}

	if _, err := bwcdkapigateway.AddProxyMethodToApiResource(bwcdkapigateway.ProxyMethodParams{
		Service:                    "sqs",
		Path:                       path,
		ApiResource:                resource,
		ApiMethod:                  method,
		ApiGatewayRole:             c.role,
		RequestTemplate:            template,
		AdditionalRequestTemplates: op.AdditionalRequestTemplates,
		ContentType:                "'application/x-www-form-urlencoded'",
		IntegrationResponses:       op.IntegrationResponses,
		MethodOptions:              methodOpts,
	}); err != nil {
		panic(errors.Wrapf(err, "failed to add %s method", method))
	}
}

func (c *apiGatewayToSqs) ApiGateway() awsapigateway.RestApiBase { return c.api.Api }
func (c *apiGatewayToSqs) ApiGatewayRole() awsiam.Role { return c.role }
func (c *apiGatewayToSqs) ApiGatewayCloudWatchRole() awsiam.Role { return c.api.CloudWatchRole }
func (c *apiGatewayToSqs) ApiGatewayLogGroup() awslogs.LogGroup { return c.api.AccessLogGroup }
func (c *apiGatewayToSqs) SqsQueue() awssqs.Queue { return c.queue }
func (c *apiGatewayToSqs) DeadLetterQueue() *awssqs.DeadLetterQueue { return c.dlq }

func (o Operation) configured() bool {
	return o.RequestTemplate != "" || o.AdditionalRequestTemplates != nil ||
		o.IntegrationResponses != nil || o.MethodResponses != nil
}

func isTrue(b *bool) bool { return b != nil && *b }

// CheckApiGatewayToSqsProps validates the props of the construct.
func CheckApiGatewayToSqsProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdksqs.CheckSqsProps(bwcdksqs.SqsProps{
		ExistingQueueObj:      props.ExistingQueueObj,
		QueueProps:            props.QueueProps,
		DeployDeadLetterQueue: props.DeployDeadLetterQueue,
		DeadLetterQueueProps:  props.DeadLetterQueueProps,
		EncryptionKey:         props.EncryptionKey,
		EncryptionKeyProps:    props.EncryptionKeyProps,
	}))
	if props.ApiGatewayProps != nil && props.ApiGatewayProps.EndpointTypes != nil {
		c.Add(bwcdkapigateway.ErrEndpointTypes)
	}

	for _, op := range []struct {
		name    string
		op      Operation
		allowed bool
	}{
		{"create", props.Create, isTrue(props.Create.Allow)},
		{"read", props.Read, props.Read.Allow == nil || *props.Read.Allow},
		{"delete", props.Delete, isTrue(props.Delete.Allow)},
	} {
		if !op.allowed && op.op.configured() {
			c.Fail("The '" + op.name + "' operation must be allowed to configure it")
		}
	}

	return c.Err()
}
