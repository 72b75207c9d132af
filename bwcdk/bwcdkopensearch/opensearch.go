// Package bwcdkopensearch builds OpenSearch Service domains that authenticate
// dashboard users with Cognito, and the recommended alarms for them.
package bwcdkopensearch

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscognito"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsopensearchservice"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkvpc"
	"github.com/samber/lo"
)

// MaxAZs is the largest number of availability zones a domain can span.
const MaxAZs = 3

// EngineVersion is the engine new domains run.
const EngineVersion = "OpenSearch_2.11"

// BuildOpenSearchProps configures BuildOpenSearch.
type BuildOpenSearchProps struct {
	IdentityPool             awscognito.CfnIdentityPool
	UserPool                 awscognito.UserPool
	CognitoAuthorizedRoleArn *string
	// ServiceRoleArn is granted HTTP access next to the Cognito authorized role.
	ServiceRoleArn       *string
	Vpc                  awsec2.IVpc
	OpenSearchDomainName string
	ClientDomainProps    *awsopensearchservice.CfnDomainProps
	SecurityGroupIDs     []*string
}

// BuildOpenSearchResponse holds the domain and the role OpenSearch uses to configure Cognito.
type BuildOpenSearchResponse struct {
	Domain awsopensearchservice.CfnDomain
	Role   awsiam.Role
}

// DefaultOpenSearchCfnDomainProps returns encrypted, HTTPS only domain props with
// Cognito authentication for dashboards.
func DefaultOpenSearchCfnDomainProps(
	domainName string, cognitoRole awsiam.IRole, props BuildOpenSearchProps,
) *awsopensearchservice.CfnDomainProps {
	principals := []awsiam.IPrincipal{awsiam.NewArnPrincipal(props.CognitoAuthorizedRoleArn)}
	if props.ServiceRoleArn != nil {
		principals = append(principals, awsiam.NewArnPrincipal(props.ServiceRoleArn))
	}

	return &awsopensearchservice.CfnDomainProps{
		DomainName:    jsii.String(domainName),
		EngineVersion: jsii.String(EngineVersion),
		EncryptionAtRestOptions: &awsopensearchservice.CfnDomain_EncryptionAtRestOptionsProperty{
			Enabled: jsii.Bool(true),
		},
		NodeToNodeEncryptionOptions: &awsopensearchservice.CfnDomain_NodeToNodeEncryptionOptionsProperty{
			Enabled: jsii.Bool(true),
		},
		DomainEndpointOptions: &awsopensearchservice.CfnDomain_DomainEndpointOptionsProperty{
			EnforceHttps: jsii.Bool(true),
		},
		EbsOptions: &awsopensearchservice.CfnDomain_EBSOptionsProperty{
			EbsEnabled: jsii.Bool(true),
			VolumeSize: jsii.Number(10),
		},
		CognitoOptions: &awsopensearchservice.CfnDomain_CognitoOptionsProperty{
			Enabled:        jsii.Bool(true),
			IdentityPoolId: props.IdentityPool.Ref(),
			UserPoolId:     props.UserPool.UserPoolId(),
			RoleArn:        cognitoRole.RoleArn(),
		},
		SnapshotOptions: &awsopensearchservice.CfnDomain_SnapshotOptionsProperty{
			AutomatedSnapshotStartHour: jsii.Number(1),
		},
		AccessPolicies: awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
			Statements: &[]awsiam.PolicyStatement{
				awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
					Principals: &principals,
					Actions:    jsii.Strings("es:ESHttp*"),
					Resources: &[]*string{jsii.Sprintf("arn:%s:es:%s:%s:domain/%s/*",
						*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), domainName)},
				}),
			},
		}),
	}
}

// BuildOpenSearch creates the domain. In a VPC it is placed in up to MaxAZs private
// subnets, otherwise it spans the availability zones of the stack.
func BuildOpenSearch(scope constructs.Construct, props BuildOpenSearchProps) BuildOpenSearchResponse {
	role := createDashboardCognitoRole(scope, props.UserPool, props.IdentityPool, props.OpenSearchDomainName)
	userClusterConfig := props.ClientDomainProps != nil && props.ClientDomainProps.ClusterConfig != nil

	construct := &awsopensearchservice.CfnDomainProps{}
	if props.Vpc != nil {
		subnetIDs, err := bwcdkvpc.RetrievePrivateSubnetIDs(props.Vpc)
		bwcdkutil.MustCheck(err)
		if len(subnetIDs) > MaxAZs {
			subnetIDs = subnetIDs[:MaxAZs]
		}

		construct.VpcOptions = &awsopensearchservice.CfnDomain_VPCOptionsProperty{
			SubnetIds:        &subnetIDs,
			SecurityGroupIds: lo.Ternary(len(props.SecurityGroupIDs) > 0, &props.SecurityGroupIDs, nil),
		}
		if !userClusterConfig {
			construct.ClusterConfig = ClusterConfiguration(len(subnetIDs))
		}
	} else if !userClusterConfig {
		construct.ClusterConfig = ClusterConfiguration(len(*awscdk.Stack_Of(scope).AvailabilityZones()))
	}

	domain := awsopensearchservice.NewCfnDomain(scope, jsii.String("OpenSearchDomain"),
		bwcdkutil.ConsolidateProps(scope,
			DefaultOpenSearchCfnDomainProps(props.OpenSearchDomainName, role, props),
			props.ClientDomainProps, construct))

	bwcdkutil.AddCfnSuppressRules(domain,
		bwcdkutil.CfnNagSuppressRule{
			ID: "W28",
			Reason: "The OpenSearch Service domain is passed dynamically as as parameter and explicitly specified " +
				"to ensure that IAM policies are configured to lockdown access to this specific OpenSearch " +
				"Service instance only",
		},
		bwcdkutil.CfnNagSuppressRule{
			ID:     "W90",
			Reason: "This is not a rule for the general case, just for specific use cases/industries",
		},
	)

	return BuildOpenSearchResponse{Domain: domain, Role: role}
}

// ClusterConfiguration returns a cluster with three dedicated masters and one data node
// per availability zone. Zone awareness needs at least two zones.
func ClusterConfiguration(azs int) *awsopensearchservice.CfnDomain_ClusterConfigProperty {
	cfg := &awsopensearchservice.CfnDomain_ClusterConfigProperty{
		DedicatedMasterEnabled: jsii.Bool(true),
		DedicatedMasterCount:   jsii.Number(3),
		InstanceCount:          jsii.Number(float64(azs)),
		ZoneAwarenessEnabled:   jsii.Bool(azs > 1),
	}
	if azs > 1 {
		cfg.ZoneAwarenessConfig = &awsopensearchservice.CfnDomain_ZoneAwarenessConfigProperty{
			AvailabilityZoneCount: jsii.Number(float64(azs)),
		}
	}
	return cfg
}

func createDashboardCognitoRole(
	scope constructs.Construct, pool awscognito.UserPool, identityPool awscognito.CfnIdentityPool, domainName string,
) awsiam.Role {
	role := awsiam.NewRole(scope, jsii.String("CognitoDashboardConfigureRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("es.amazonaws.com"), nil),
	})

	region, account := *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID()
	policy := awsiam.NewPolicy(scope, jsii.String("CognitoDashboardConfigureRolePolicy"), &awsiam.PolicyProps{
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Actions: jsii.Strings(
					"cognito-idp:DescribeUserPool",
					"cognito-idp:CreateUserPoolClient",
					"cognito-idp:DeleteUserPoolClient",
					"cognito-idp:DescribeUserPoolClient",
					"cognito-idp:AdminInitiateAuth",
					"cognito-idp:AdminUserGlobalSignOut",
					"cognito-idp:ListUserPoolClients",
					"cognito-identity:DescribeIdentityPool",
					"cognito-identity:UpdateIdentityPool",
					"cognito-identity:SetIdentityPoolRoles",
					"cognito-identity:GetIdentityPoolRoles",
					"es:UpdateDomainConfig",
				),
				Resources: &[]*string{
					pool.UserPoolArn(),
					jsii.Sprintf("arn:aws:cognito-identity:%s:%s:identitypool/%s", region, account, *identityPool.Ref()),
					jsii.Sprintf("arn:aws:es:%s:%s:domain/%s", region, account, domainName),
				},
			}),
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Actions: jsii.Strings("iam:PassRole"),
				Conditions: &map[string]any{
					"StringLike": map[string]any{"iam:PassedToService": "cognito-identity.amazonaws.com"},
				},
				Resources: &[]*string{role.RoleArn()},
			}),
		},
	})
	policy.AttachToRole(role)

	return role
}

type alarmDef struct {
	id          string
	metric      string
	statistic   string
	periodSecs  float64
	threshold   float64
	evaluations float64
	operator    awscloudwatch.ComparisonOperator
	description string
}

var alarmDefs = []alarmDef{
	{"StatusRedAlarm", "ClusterStatus.red", "Maximum", 60, 1, 1,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"At least one primary shard and its replicas are not allocated to a node. "},
	{"StatusYellowAlarm", "ClusterStatus.yellow", "Maximum", 60, 1, 1,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"At least one replica shard is not allocated to a node."},
	{"FreeStorageSpaceTooLowAlarm", "FreeStorageSpace", "Minimum", 60, 20000, 1,
		awscloudwatch.ComparisonOperator_LESS_THAN_OR_EQUAL_TO_THRESHOLD,
		"A node in your cluster is down to 20 GiB of free storage space."},
	{"IndexWritesBlockedTooHighAlarm", "ClusterIndexWritesBlocked", "Maximum", 300, 1, 1,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"Your cluster is blocking write requests."},
	{"AutomatedSnapshotFailureTooHighAlarm", "AutomatedSnapshotFailure", "Maximum", 60, 1, 1,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"An automated snapshot failed. This failure is often the result of a red cluster health status."},
	{"CPUUtilizationTooHighAlarm", "CPUUtilization", "Average", 900, 80, 3,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"100% CPU utilization is not uncommon, but sustained high usage is problematic. " +
			"Consider using larger instance types or adding instances."},
	{"JVMMemoryPressureTooHighAlarm", "JVMMemoryPressure", "Average", 900, 80, 1,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"Average JVM memory pressure over last 15 minutes too high. Consider scaling vertically."},
	{"MasterCPUUtilizationTooHighAlarm", "MasterCPUUtilization", "Average", 900, 50, 3,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"Average CPU utilization over last 45 minutes too high. " +
			"Consider using larger instance types for your dedicated master nodes."},
	{"MasterJVMMemoryPressureTooHighAlarm", "MasterJVMMemoryPressure", "Average", 900, 50, 1,
		awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		"Average JVM memory pressure over last 15 minutes too high. Consider scaling vertically."},
}

// BuildOpenSearchCWAlarms creates the recommended alarms for a domain in scope.
func BuildOpenSearchCWAlarms(scope constructs.Construct) []awscloudwatch.Alarm {
	return lo.Map(alarmDefs, func(d alarmDef, _ int) awscloudwatch.Alarm {
		return awscloudwatch.NewAlarm(scope, jsii.String(d.id), &awscloudwatch.AlarmProps{
			Metric: awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
				Namespace:  jsii.String("AWS/ES"),
				MetricName: jsii.String(d.metric),
				Statistic:  jsii.String(d.statistic),
				Period:     awscdk.Duration_Seconds(jsii.Number(d.periodSecs)),
			}),
			Threshold:          jsii.Number(d.threshold),
			EvaluationPeriods:  jsii.Number(d.evaluations),
			ComparisonOperator: d.operator,
			AlarmDescription:   jsii.String(d.description),
		})
	})
}

// OpenSearchProps are the props CheckOpenSearchProps validates.
type OpenSearchProps struct {
	OpenSearchDomainProps *awsopensearchservice.CfnDomainProps
}

// CheckOpenSearchProps validates domain related props.
func CheckOpenSearchProps(props OpenSearchProps) error {
	var c bwcdkutil.Checker
	if props.OpenSearchDomainProps != nil && props.OpenSearchDomainProps.VpcOptions != nil {
		c.Fail("Define VPC using construct parameters not the OpenSearch Service props")
	}
	return c.Err()
}
