// Package bwsclambdaopensearch connects a Lambda function to an OpenSearch Service
// domain whose dashboards authenticate users with Cognito.
package bwsclambdaopensearch

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscognito"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsopensearchservice"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkcognito"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkopensearch"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
)

// DefaultDomainEndpointEnvironmentVariableName holds the domain endpoint in the
// function environment.
const DefaultDomainEndpointEnvironmentVariableName = "DOMAIN_ENDPOINT"

// Props configures the LambdaToOpenSearch construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	// OpenSearchDomainName is required.
	OpenSearchDomainName  string
	OpenSearchDomainProps *awsopensearchservice.CfnDomainProps
	// CognitoDomainName defaults to OpenSearchDomainName.
	CognitoDomainName string
	// CreateCloudWatchAlarms defaults to true.
	CreateCloudWatchAlarms *bool
	// DomainEndpointEnvironmentVariableName defaults to DefaultDomainEndpointEnvironmentVariableName.
	DomainEndpointEnvironmentVariableName *string

	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
}

// LambdaToOpenSearch exposes the resources of the pattern.
type LambdaToOpenSearch interface {
	LambdaFunction() awslambda.Function
	UserPool() awscognito.UserPool
	UserPoolClient() awscognito.UserPoolClient
	IdentityPool() awscognito.CfnIdentityPool
	OpenSearchDomain() awsopensearchservice.CfnDomain
	OpenSearchRole() awsiam.Role
	CloudWatchAlarms() []awscloudwatch.Alarm
	Vpc() awsec2.IVpc
}

type lambdaToOpenSearch struct {
	fn      awslambda.Function
	cognito bwcdkcognito.Options
	search  bwcdkopensearch.BuildOpenSearchResponse
	alarms  []awscloudwatch.Alarm
	vpc     awsec2.IVpc
}

// New creates the function, the Cognito user and identity pools and the domain. The
// function role may call the domain over HTTP. It panics when props are invalid.
func New(scope constructs.Construct, id string, props Props) LambdaToOpenSearch {
	bwcdkutil.MustCheck(CheckLambdaToOpenSearchProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &lambdaToOpenSearch{}

	var err error
	con.vpc, err = bwcdkvpc.ObtainVpc(scope, bwcdkvpc.PatternVpcProps{
		ExistingVpc: props.ExistingVpc,
		DeployVpc:   props.DeployVpc,
		VpcProps:    props.VpcProps,
	})
	if err != nil {
		panic(err)
	}

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
		Vpc:                 con.vpc,
	}, "")

	pool := bwcdkcognito.BuildUserPool(scope, nil)
	client := bwcdkcognito.BuildUserPoolClient(scope, pool, nil)
	con.cognito = bwcdkcognito.Options{
		UserPool:       pool,
		UserPoolClient: client,
		IdentityPool:   bwcdkcognito.BuildIdentityPool(scope, pool, client, nil),
	}

	cognitoDomain := props.CognitoDomainName
	if cognitoDomain == "" {
		cognitoDomain = props.OpenSearchDomainName
	}
	authorizedRole := bwcdkcognito.SetupCognitoForSearchService(scope, cognitoDomain, con.cognito)

	var securityGroupIDs []*string
	if con.vpc != nil {
		securityGroupIDs = bwcdklambda.VpcSecurityGroupIDs(con.fn)
	}

	con.search = bwcdkopensearch.BuildOpenSearch(scope, bwcdkopensearch.BuildOpenSearchProps{
		IdentityPool:             con.cognito.IdentityPool,
		UserPool:                 pool,
		CognitoAuthorizedRoleArn: authorizedRole.RoleArn(),
		ServiceRoleArn:           con.fn.Role().RoleArn(),
		Vpc:                      con.vpc,
		OpenSearchDomainName:     props.OpenSearchDomainName,
		ClientDomainProps:        props.OpenSearchDomainProps,
		SecurityGroupIDs:         securityGroupIDs,
	})

	envName := DefaultDomainEndpointEnvironmentVariableName
	if props.DomainEndpointEnvironmentVariableName != nil {
		envName = *props.DomainEndpointEnvironmentVariableName
	}
	con.fn.AddEnvironment(jsii.String(envName), con.search.Domain.AttrDomainEndpoint(), nil)

	if props.CreateCloudWatchAlarms == nil || *props.CreateCloudWatchAlarms {
		con.alarms = bwcdkopensearch.BuildOpenSearchCWAlarms(scope)
	}

	return con
}

func (c *lambdaToOpenSearch) LambdaFunction() awslambda.Function { return c.fn }
func (c *lambdaToOpenSearch) UserPool() awscognito.UserPool { return c.cognito.UserPool }
func (c *lambdaToOpenSearch) UserPoolClient() awscognito.UserPoolClient { return c.cognito.UserPoolClient }
func (c *lambdaToOpenSearch) IdentityPool() awscognito.CfnIdentityPool { return c.cognito.IdentityPool }
func (c *lambdaToOpenSearch) OpenSearchDomain() awsopensearchservice.CfnDomain { return c.search.Domain }
func (c *lambdaToOpenSearch) OpenSearchRole() awsiam.Role { return c.search.Role }
func (c *lambdaToOpenSearch) CloudWatchAlarms() []awscloudwatch.Alarm { return c.alarms }
func (c *lambdaToOpenSearch) Vpc() awsec2.IVpc { return c.vpc }

// CheckLambdaToOpenSearchProps validates the props of the construct.
func CheckLambdaToOpenSearchProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdkvpc.CheckVpcProps(bwcdkvpc.VpcPropsSet{
		ExistingVpc: props.ExistingVpc,
		VpcProps:    props.VpcProps,
		DeployVpc:   props.DeployVpc,
	}))
	c.Add(bwcdkopensearch.CheckOpenSearchProps(bwcdkopensearch.OpenSearchProps{
		OpenSearchDomainProps: props.OpenSearchDomainProps,
	}))

	if props.OpenSearchDomainName == "" {
		c.Fail("openSearchDomainName is required")
	}
	if props.OpenSearchDomainProps != nil && props.OpenSearchDomainProps.DomainName != nil &&
		*props.OpenSearchDomainProps.DomainName != props.OpenSearchDomainName {
		c.Fail("If the DomainName property is specified in openSearchDomainProps it must match openSearchDomainName")
	}

	return c.Err()
}
