package bwcdkvpc

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// ServiceEndpointType names an AWS service that can be reached through a VPC endpoint.
// The value doubles as the construct id of the endpoint in the VPC.
type ServiceEndpointType string

const (
	ServiceEndpointDynamoDB         ServiceEndpointType = "DDB"
	ServiceEndpointSNS              ServiceEndpointType = "SNS"
	ServiceEndpointSQS              ServiceEndpointType = "SQS"
	ServiceEndpointS3               ServiceEndpointType = "S3"
	ServiceEndpointStepFunctions    ServiceEndpointType = "STEP_FUNCTIONS"
	ServiceEndpointSagemakerRuntime ServiceEndpointType = "SAGEMAKER_RUNTIME"
	ServiceEndpointSecretsManager   ServiceEndpointType = "SECRETS_MANAGER"
	ServiceEndpointSSM              ServiceEndpointType = "SSM"
	ServiceEndpointECRAPI           ServiceEndpointType = "ECR_API"
	ServiceEndpointECRDKR           ServiceEndpointType = "ECR_DKR"
	ServiceEndpointEvents           ServiceEndpointType = "CLOUDWATCH_EVENTS"
	ServiceEndpointKinesisFirehose  ServiceEndpointType = "KINESIS_FIREHOSE"
	ServiceEndpointKinesisStreams   ServiceEndpointType = "KINESIS_STREAMS"
	ServiceEndpointBedrock          ServiceEndpointType = "BEDROCK"
	ServiceEndpointBedrockRuntime   ServiceEndpointType = "BEDROCK_RUNTIME"
	ServiceEndpointKendra           ServiceEndpointType = "KENDRA"
)

// ErrUnsupportedEndpoint is returned for service endpoint types without a definition.
var ErrUnsupportedEndpoint = errors.New("unsupported service sent to AddAwsServiceEndpoint")

type endpointDefinition struct {
	name    ServiceEndpointType
	gateway func() awsec2.GatewayVpcEndpointAwsService
	iface   func() awsec2.InterfaceVpcEndpointAwsService
}

var endpointDefinitions = []endpointDefinition{
	{name: ServiceEndpointDynamoDB, gateway: awsec2.GatewayVpcEndpointAwsService_DYNAMODB},
	{name: ServiceEndpointS3, gateway: awsec2.GatewayVpcEndpointAwsService_S3},
	{name: ServiceEndpointStepFunctions, iface: awsec2.InterfaceVpcEndpointAwsService_STEP_FUNCTIONS},
	{name: ServiceEndpointSNS, iface: awsec2.InterfaceVpcEndpointAwsService_SNS},
	{name: ServiceEndpointSQS, iface: awsec2.InterfaceVpcEndpointAwsService_SQS},
	{name: ServiceEndpointSagemakerRuntime, iface: awsec2.InterfaceVpcEndpointAwsService_SAGEMAKER_RUNTIME},
	{name: ServiceEndpointSecretsManager, iface: awsec2.InterfaceVpcEndpointAwsService_SECRETS_MANAGER},
	{name: ServiceEndpointSSM, iface: awsec2.InterfaceVpcEndpointAwsService_SSM},
	{name: ServiceEndpointECRAPI, iface: awsec2.InterfaceVpcEndpointAwsService_ECR},
	{name: ServiceEndpointECRDKR, iface: awsec2.InterfaceVpcEndpointAwsService_ECR_DOCKER},
	{name: ServiceEndpointEvents, iface: awsec2.InterfaceVpcEndpointAwsService_EVENTBRIDGE},
	{name: ServiceEndpointKinesisFirehose, iface: awsec2.InterfaceVpcEndpointAwsService_KINESIS_FIREHOSE},
	{name: ServiceEndpointKinesisStreams, iface: awsec2.InterfaceVpcEndpointAwsService_KINESIS_STREAMS},
	{name: ServiceEndpointBedrock, iface: awsec2.InterfaceVpcEndpointAwsService_BEDROCK},
	{name: ServiceEndpointBedrockRuntime, iface: awsec2.InterfaceVpcEndpointAwsService_BEDROCK_RUNTIME},
	{name: ServiceEndpointKendra, iface: awsec2.InterfaceVpcEndpointAwsService_KENDRA},
}

// AddAwsServiceEndpoint adds an endpoint for the service to vpc. Adding the same
// endpoint type twice is a no-op. S3 and DynamoDB get gateway endpoints, all other
// services get interface endpoints with a security group admitting HTTPS from the VPC.
func AddAwsServiceEndpoint(scope constructs.Construct, vpc awsec2.IVpc, typ ServiceEndpointType) error {
	if EndpointExists(vpc, typ) {
		return nil
	}

	def, ok := lo.Find(endpointDefinitions, func(d endpointDefinition) bool { return d.name == typ })
	if !ok {
		return errors.Wrapf(ErrUnsupportedEndpoint, "endpoint type %q", typ)
	}

	if def.gateway != nil {
		vpc.AddGatewayEndpoint(jsii.String(string(typ)), &awsec2.GatewayVpcEndpointOptions{
			Service: def.gateway(),
		})
		return nil
	}

	sg := BuildSecurityGroup(scope, fmt.Sprintf("%s-%s", *scope.Node().Id(), typ),
		&awsec2.SecurityGroupProps{
			Vpc:              vpc,
			AllowAllOutbound: jsii.Bool(true),
		},
		[]SecurityGroupRule{{
			Peer:       awsec2.Peer_Ipv4(vpc.VpcCidrBlock()),
			Connection: awsec2.Port_Tcp(jsii.Number(443)),
		}}, nil)

	vpc.AddInterfaceEndpoint(jsii.String(string(typ)), &awsec2.InterfaceVpcEndpointOptions{
		Service:        def.iface(),
		SecurityGroups: &[]awsec2.ISecurityGroup{sg},
	})
	return nil
}

// EndpointExists reports whether vpc already has an endpoint of the given type.
func EndpointExists(vpc awsec2.IVpc, typ ServiceEndpointType) bool {
	return vpc.Node().TryFindChild(jsii.String(string(typ))) != nil
}

// SecurityGroupRule is one ingress or egress rule of BuildSecurityGroup.
type SecurityGroupRule struct {
	Peer        awsec2.IPeer
	Connection  awsec2.Port
	Description *string
	RemoteRule  *bool
}

// BuildSecurityGroup creates a security group named "<name>-security-group" with the given rules.
func BuildSecurityGroup(
	scope constructs.Construct,
	name string,
	props *awsec2.SecurityGroupProps,
	ingress, egress []SecurityGroupRule,
) awsec2.SecurityGroup {
	sg := awsec2.NewSecurityGroup(scope, jsii.String(name+"-security-group"), props)
	for _, r := range ingress {
		sg.AddIngressRule(r.Peer, r.Connection, r.Description, r.RemoteRule)
	}
	for _, r := range egress {
		sg.AddEgressRule(r.Peer, r.Connection, r.Description, r.RemoteRule)
	}

	bwcdkutil.AddCfnSuppressRules(sg,
		bwcdkutil.CfnNagSuppressRule{ID: "W5", Reason: "Egress of 0.0.0.0/0 is default and generally considered OK"},
		bwcdkutil.CfnNagSuppressRule{ID: "W40", Reason: "Egress IPProtocol of -1 is default and generally considered OK"},
	)
	return sg
}
