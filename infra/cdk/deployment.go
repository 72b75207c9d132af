package cdk

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambdaeventsources"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkapigateway"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkdynamo"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwsc/bwscapigatewaylambda"
	"github.com/basewarphq/bwsc/bwsc/bwsclambdadynamodb"
	"github.com/basewarphq/bwsc/bwsc/bwsclambdasqs"
	"github.com/basewarphq/bwsc/bwsc/bwscsqslambda"
)

const ingestEntry = "../../../lambdas/cmd/ingest"

// NewDeployment wires the ingest function to a table and a queue. The same binary
// consumes the queue behind the "/l/consume" pass-through path.
func NewDeployment(stack awscdk.Stack, shared *Shared, deploymentIdent string) {
	ingest := bwcdklambda.New(stack, bwcdklambda.Props{
		Entry: jsii.String(ingestEntry),
	})
	consumer := bwcdklambda.New(stack, bwcdklambda.Props{
		Entry:           jsii.String(ingestEntry),
		PassThroughPath: jsii.String("/l/consume"),
	})

	items := bwsclambdadynamodb.New(stack, "Items", bwsclambdadynamodb.Props{
		ExistingLambdaObj: ingest.Function(),
		DynamoTableProps: &awsdynamodb.TableProps{
			PartitionKey: &awsdynamodb.Attribute{
				Name: jsii.String("id"),
				Type: awsdynamodb.AttributeType_STRING,
			},
		},
		TablePermissions: bwcdkdynamo.TablePermissionReadWrite,
	})
	bwsclambdadynamodb.New(stack, "ConsumedItems", bwsclambdadynamodb.Props{
		ExistingLambdaObj: consumer.Function(),
		ExistingTableObj:  items.DynamoTableInterface(),
		TablePermissions:  bwcdkdynamo.TablePermissionWrite,
	})

	events := bwsclambdasqs.New(stack, "Events", bwsclambdasqs.Props{
		ExistingLambdaObj: ingest.Function(),
		EncryptionKey:     shared.QueueKey,
	})
	bwscsqslambda.New(stack, "Consume", bwscsqslambda.Props{
		ExistingLambdaObj: consumer.Function(),
		ExistingQueueObj:  events.SqsQueue(),
		SqsEventSourceProps: &awslambdaeventsources.SqsEventSourceProps{
			BatchSize:               jsii.Number(10),
			ReportBatchItemFailures: jsii.Bool(true),
		},
	})

	var customDomain *bwcdkapigateway.CustomDomain
	if shared.Domain != nil {
		customDomain = shared.Domain.CustomDomain(strings.ToLower(deploymentIdent))
	}

	bwscapigatewaylambda.New(stack, "Api", bwscapigatewaylambda.Props{
		ExistingLambdaObj: ingest.Function(),
		EndpointType:      awsapigateway.EndpointType_REGIONAL,
		PublicRoutes:      []string{"/items"},
		CustomDomain:      customDomain,
	})
}
