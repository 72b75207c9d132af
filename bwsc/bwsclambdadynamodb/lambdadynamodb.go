// Package bwsclambdadynamodb gives a Lambda function access to a DynamoDB table.
package bwsclambdadynamodb

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkdynamo"
	"github.com/basewarphq/bwsc/bwcdk/bwcdklambda"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/cockroachdb/errors"
)

// DefaultTableEnvironmentVariableName holds the table name in the function environment.
const DefaultTableEnvironmentVariableName = "DDB_TABLE_NAME"

// Props configures the LambdaToDynamoDB construct.
type Props struct {
	ExistingLambdaObj   awslambda.Function
	LambdaFunctionProps *awslambda.FunctionProps

	ExistingTableObj awsdynamodb.ITable
	DynamoTableProps *awsdynamodb.TableProps
	// TablePermissions default to bwcdkdynamo.TablePermissionReadWrite.
	TablePermissions bwcdkdynamo.TablePermission
	// TableEnvironmentVariableName defaults to DefaultTableEnvironmentVariableName.
	TableEnvironmentVariableName *string

	ExistingVpc awsec2.IVpc
	DeployVpc   *bool
	VpcProps    *awsec2.VpcProps
}

// LambdaToDynamoDB exposes the resources of the pattern.
type LambdaToDynamoDB interface {
	LambdaFunction() awslambda.Function
	// DynamoTable is nil when an existing table was passed.
	DynamoTable() awsdynamodb.Table
	DynamoTableInterface() awsdynamodb.ITable
	Vpc() awsec2.IVpc
}

type lambdaToDynamoDB struct {
	fn    awslambda.Function
	table bwcdkdynamo.BuildDynamoDBTableResponse
	vpc   awsec2.IVpc
}

// New creates the function and the table, grants the permissions and passes the
// table name to the function. It panics when props are invalid.
func New(scope constructs.Construct, id string, props Props) LambdaToDynamoDB {
	bwcdkutil.MustCheck(CheckLambdaToDynamoDBProps(props))

	scope = constructs.NewConstruct(scope, jsii.String(id))
	con := &lambdaToDynamoDB{}

	var err error
	con.vpc, err = bwcdkvpc.ObtainVpc(scope, bwcdkvpc.PatternVpcProps{
		ExistingVpc: props.ExistingVpc,
		DeployVpc:   props.DeployVpc,
		VpcProps:    props.VpcProps,
		Endpoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointDynamoDB},
	})
	if err != nil {
		panic(err)
	}

	con.fn = bwcdklambda.BuildLambdaFunction(scope, bwcdklambda.BuildLambdaFunctionProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
		Vpc:                 con.vpc,
	}, "")

	con.table = bwcdkdynamo.BuildDynamoDBTable(scope, bwcdkdynamo.BuildDynamoDBTableProps{
		ExistingTableObj: props.ExistingTableObj,
		DynamoTableProps: props.DynamoTableProps,
	})

	envName := DefaultTableEnvironmentVariableName
	if props.TableEnvironmentVariableName != nil {
		envName = *props.TableEnvironmentVariableName
	}
	con.fn.AddEnvironment(jsii.String(envName), con.table.TableInterface.TableName(), nil)

	if err := bwcdkdynamo.GrantTablePermissions(con.table.TableInterface, con.fn, props.TablePermissions); err != nil {
		panic(errors.Wrap(err, "failed to grant table permissions"))
	}

	return con
}

func (c *lambdaToDynamoDB) LambdaFunction() awslambda.Function { return c.fn }
func (c *lambdaToDynamoDB) DynamoTable() awsdynamodb.Table { return c.table.Table }
func (c *lambdaToDynamoDB) DynamoTableInterface() awsdynamodb.ITable { return c.table.TableInterface }
func (c *lambdaToDynamoDB) Vpc() awsec2.IVpc { return c.vpc }

// CheckLambdaToDynamoDBProps validates the props of the construct.
func CheckLambdaToDynamoDBProps(props Props) error {
	var c bwcdkutil.Checker
	c.Add(bwcdklambda.CheckLambdaProps(bwcdklambda.LambdaProps{
		ExistingLambdaObj:   props.ExistingLambdaObj,
		LambdaFunctionProps: props.LambdaFunctionProps,
	}))
	c.Add(bwcdkdynamo.CheckTableProps(bwcdkdynamo.BuildDynamoDBTableProps{
		ExistingTableObj: props.ExistingTableObj,
		DynamoTableProps: props.DynamoTableProps,
	}))
	c.Add(bwcdkvpc.CheckVpcProps(bwcdkvpc.VpcPropsSet{
		ExistingVpc: props.ExistingVpc,
		VpcProps:    props.VpcProps,
		DeployVpc:   props.DeployVpc,
		EndPoints:   []bwcdkvpc.ServiceEndpointType{bwcdkvpc.ServiceEndpointDynamoDB},
	}))

	switch props.TablePermissions {
	case "", bwcdkdynamo.TablePermissionAll, bwcdkdynamo.TablePermissionRead,
		bwcdkdynamo.TablePermissionReadWrite, bwcdkdynamo.TablePermissionWrite:
	default:
		c.Fail("Invalid table permission submitted - " + string(props.TablePermissions))
	}
	return c.Err()
}
