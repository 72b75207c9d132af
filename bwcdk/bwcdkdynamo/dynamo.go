// Package bwcdkdynamo builds DynamoDB tables with on-demand billing, point in time
// recovery and AWS managed encryption, and grants functions access to them.
package bwcdkdynamo

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const paramsNamespace = "dynamo"

// DefaultTableID is the construct id of tables created by BuildDynamoDBTable.
const DefaultTableID = "DynamoTable"

// DefaultTableProps returns the defaults for new tables: a string "id" partition key.
func DefaultTableProps() *awsdynamodb.TableProps {
	return &awsdynamodb.TableProps{
		BillingMode:  awsdynamodb.BillingMode_PAY_PER_REQUEST,
		Encryption:   awsdynamodb.TableEncryption_AWS_MANAGED,
		PartitionKey: &awsdynamodb.Attribute{Name: jsii.String("id"), Type: awsdynamodb.AttributeType_STRING},
		PointInTimeRecoverySpecification: &awsdynamodb.PointInTimeRecoverySpecification{
			PointInTimeRecoveryEnabled: jsii.Bool(true),
		},
	}
}

// BuildDynamoDBTableProps configures BuildDynamoDBTable.
type BuildDynamoDBTableProps struct {
	// ExistingTableObj is returned as-is when set.
	ExistingTableObj awsdynamodb.ITable
	// DynamoTableProps are merged over DefaultTableProps.
	DynamoTableProps *awsdynamodb.TableProps
}

// BuildDynamoDBTableResponse holds the table. Table is nil when an existing table was passed.
type BuildDynamoDBTableResponse struct {
	Table          awsdynamodb.Table
	TableInterface awsdynamodb.ITable
}

// BuildDynamoDBTable creates a table, or returns the existing one.
func BuildDynamoDBTable(scope constructs.Construct, props BuildDynamoDBTableProps) BuildDynamoDBTableResponse {
	bwcdkutil.MustCheck(CheckTableProps(props))

	if props.ExistingTableObj != nil {
		tbl, _ := props.ExistingTableObj.(awsdynamodb.Table)
		return BuildDynamoDBTableResponse{Table: tbl, TableInterface: props.ExistingTableObj}
	}

	table := awsdynamodb.NewTable(scope, jsii.String(DefaultTableID),
		bwcdkutil.ConsolidateProps(scope, DefaultTableProps(), props.DynamoTableProps, nil))

	return BuildDynamoDBTableResponse{Table: table, TableInterface: table}
}

// CheckTableProps validates table related props.
func CheckTableProps(props BuildDynamoDBTableProps) error {
	var c bwcdkutil.Checker
	c.Exclusive(props.ExistingTableObj, props.DynamoTableProps,
		"Either provide existingTableObj or dynamoTableProps, but not both.")
	return c.Err()
}

// TablePermission names a set of table actions granted to a function.
type TablePermission string

const (
	TablePermissionAll       TablePermission = "All"
	TablePermissionRead      TablePermission = "Read"
	TablePermissionReadWrite TablePermission = "ReadWrite"
	TablePermissionWrite     TablePermission = "Write"
)

// ErrInvalidTablePermission is returned for a permission that is not one of the TablePermission values.
var ErrInvalidTablePermission = errors.New("invalid table permission")

// GrantTablePermissions grants grantee access to table and its indexes. An empty
// permission grants read and write access.
func GrantTablePermissions(table awsdynamodb.ITable, grantee awsiam.IGrantable, perm TablePermission) error {
	perm = TablePermission(strings.TrimSpace(string(perm)))
	if perm == "" {
		perm = TablePermissionReadWrite
	}

	valid := []TablePermission{TablePermissionAll, TablePermissionRead, TablePermissionReadWrite, TablePermissionWrite}
	if !lo.Contains(valid, perm) {
		return errors.Wrapf(ErrInvalidTablePermission, "%q, must be one of %v", perm, valid)
	}

	switch perm {
	case TablePermissionAll:
		table.GrantFullAccess(grantee)
	case TablePermissionRead:
		table.GrantReadData(grantee)
		grantIndexRead(table, grantee)
	case TablePermissionReadWrite:
		table.GrantReadWriteData(grantee)
		grantIndexRead(table, grantee)
	case TablePermissionWrite:
		table.GrantWriteData(grantee)
	}
	return nil
}

// grantIndexRead allows queries on every index of the table.
func grantIndexRead(table awsdynamodb.ITable, grantee awsiam.IGrantable) {
	indexArn := jsii.Sprintf("%s/index/*", *table.TableArn())
	awsiam.Grant_AddToPrincipal(&awsiam.GrantOnPrincipalOptions{
		Grantee:      grantee,
		ResourceArns: &[]*string{indexArn},
		Actions: jsii.Strings(
			"dynamodb:Query",
			"dynamodb:Scan",
			"dynamodb:GetItem",
			"dynamodb:BatchGetItem",
			"dynamodb:ConditionCheckItem",
		),
	})
}

// StoreTableName publishes the table name as an SSM parameter so that other stacks
// can look it up with LookupTable without a cross stack reference.
func StoreTableName(scope constructs.Construct, identifier string, table awsdynamodb.ITable) {
	bwcdkparams.Store(scope, "TableNameParam"+identifier, paramsNamespace,
		tableParamName(scope, identifier), table.TableName())
}

// LookupTable references a table published with StoreTableName.
func LookupTable(scope constructs.Construct, identifier string) awsdynamodb.ITable {
	tableName := bwcdkparams.LookupLocal(scope, paramsNamespace, tableParamName(scope, identifier))
	return awsdynamodb.Table_FromTableName(scope, jsii.String("LookupTable"+identifier), tableName)
}

func tableParamName(scope constructs.Construct, identifier string) string {
	name := identifier + "/table-name"
	if ident := strings.ToLower(bwcdkutil.DeploymentIdent(scope)); ident != "" {
		name = ident + "/" + name
	}
	return name
}
