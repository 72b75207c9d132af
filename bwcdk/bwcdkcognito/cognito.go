// Package bwcdkcognito builds the Cognito user pool, client and identity pool that
// authenticate users of OpenSearch Dashboards.
package bwcdkcognito

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscognito"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkutil"
)

// DefaultUserPoolProps returns the defaults for user pools: admin created users only,
// with the feature plan that supports enforced threat protection.
func DefaultUserPoolProps() *awscognito.UserPoolProps {
	return &awscognito.UserPoolProps{
		SelfSignUpEnabled: jsii.Bool(false),
		FeaturePlan:       awscognito.FeaturePlan_PLUS,
		AccountRecovery:   awscognito.AccountRecovery_EMAIL_ONLY,
		PasswordPolicy: &awscognito.PasswordPolicy{
			MinLength:        jsii.Number(8),
			RequireLowercase: jsii.Bool(true),
			RequireUppercase: jsii.Bool(true),
			RequireDigits:    jsii.Bool(true),
			RequireSymbols:   jsii.Bool(true),
		},
	}
}

// BuildUserPool creates a user pool with advanced security enforced.
func BuildUserPool(scope constructs.Construct, props *awscognito.UserPoolProps) awscognito.UserPool {
	pool := awscognito.NewUserPool(scope, jsii.String("CognitoUserPool"),
		bwcdkutil.ConsolidateProps(scope, DefaultUserPoolProps(), props, nil))

	cfn := pool.Node().FindChild(jsii.String("Resource")).(awscognito.CfnUserPool)
	cfn.SetUserPoolAddOns(&awscognito.CfnUserPool_UserPoolAddOnsProperty{
		AdvancedSecurityMode: jsii.String("ENFORCED"),
	})

	if smsRole := pool.Node().TryFindChild(jsii.String("smsRole")); smsRole != nil {
		bwcdkutil.AddCfnSuppressRules(smsRole, bwcdkutil.CfnNagSuppressRule{
			ID:     "W11",
			Reason: "Allowing * resource on permissions policy since its used by Cognito to send SMS messages via sns:Publish",
		})
	}

	return pool
}

// BuildUserPoolClient creates a client of pool.
func BuildUserPoolClient(
	scope constructs.Construct, pool awscognito.IUserPool, props *awscognito.UserPoolClientProps,
) awscognito.UserPoolClient {
	return awscognito.NewUserPoolClient(scope, jsii.String("CognitoUserPoolClient"),
		bwcdkutil.ConsolidateProps(scope, &awscognito.UserPoolClientProps{UserPool: pool}, props, nil))
}

// BuildIdentityPool creates an identity pool that federates client's users and does
// not allow unauthenticated identities.
func BuildIdentityPool(
	scope constructs.Construct, pool awscognito.UserPool, client awscognito.UserPoolClient,
	props *awscognito.CfnIdentityPoolProps,
) awscognito.CfnIdentityPool {
	defaults := &awscognito.CfnIdentityPoolProps{
		AllowUnauthenticatedIdentities: jsii.Bool(false),
		CognitoIdentityProviders: []any{
			&awscognito.CfnIdentityPool_CognitoIdentityProviderProperty{
				ClientId:     client.UserPoolClientId(),
				ProviderName: pool.UserPoolProviderName(),
			},
		},
	}
	return awscognito.NewCfnIdentityPool(scope, jsii.String("CognitoIdentityPool"),
		bwcdkutil.ConsolidateProps(scope, defaults, props, nil))
}

// Options are the Cognito resources a search domain authenticates against.
type Options struct {
	IdentityPool   awscognito.CfnIdentityPool
	UserPool       awscognito.UserPool
	UserPoolClient awscognito.UserPoolClient
}

// SetupCognitoForSearchService creates the hosted UI domain and the role that
// authenticated users assume to call the search domain.
func SetupCognitoForSearchService(scope constructs.Construct, domainName string, opts Options) awsiam.Role {
	userPoolDomain := awscognito.NewCfnUserPoolDomain(scope, jsii.String("UserPoolDomain"),
		&awscognito.CfnUserPoolDomainProps{
			Domain:     jsii.String(domainName),
			UserPoolId: opts.UserPool.UserPoolId(),
		})
	userPoolDomain.AddDependency(opts.UserPool.Node().FindChild(jsii.String("Resource")).(awscognito.CfnUserPool))

	principal := awsiam.NewFederatedPrincipal(jsii.String("cognito-identity.amazonaws.com"),
		&map[string]any{
			"StringEquals": map[string]any{
				"cognito-identity.amazonaws.com:aud": opts.IdentityPool.Ref(),
			},
			"ForAnyValue:StringLike": map[string]any{
				"cognito-identity.amazonaws.com:amr": "authenticated",
			},
		}, jsii.String("sts:AssumeRoleWithWebIdentity"))

	role := awsiam.NewRole(scope, jsii.String("CognitoAuthorizedRole"), &awsiam.RoleProps{
		AssumedBy: principal,
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			"CognitoAccessPolicy": awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions: jsii.Strings("es:ESHttp*"),
						Resources: &[]*string{jsii.Sprintf("arn:%s:es:%s:%s:domain/%s/*",
							*awscdk.Aws_PARTITION(), *awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), domainName)},
					}),
				},
			}),
		},
	})

	awscognito.NewCfnIdentityPoolRoleAttachment(scope, jsii.String("IdentityPoolRoleMapping"),
		&awscognito.CfnIdentityPoolRoleAttachmentProps{
			IdentityPoolId: opts.IdentityPool.Ref(),
			Roles: map[string]any{
				"authenticated": role.RoleArn(),
			},
		})

	return role
}

// SearchServiceCognito holds everything BuildCognitoForSearchService creates.
type SearchServiceCognito struct {
	Options
	AuthorizedRole awsiam.Role
}

// BuildCognitoForSearchService creates a user pool, client and identity pool with
// default props, and wires them for dashboards of the search domain domainName.
func BuildCognitoForSearchService(scope constructs.Construct, domainName string) SearchServiceCognito {
	pool := BuildUserPool(scope, nil)
	client := BuildUserPoolClient(scope, pool, nil)
	opts := Options{
		UserPool:       pool,
		UserPoolClient: client,
		IdentityPool:   BuildIdentityPool(scope, pool, client, nil),
	}
	return SearchServiceCognito{
		Options:        opts,
		AuthorizedRole: SetupCognitoForSearchService(scope, domainName, opts),
	}
}
