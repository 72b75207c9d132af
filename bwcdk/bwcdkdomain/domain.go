// Package bwcdkdomain provides the hosted zone and the certificate a pattern needs
// to serve an API under its own domain name.
//
// The zone and the certificate are created once, typically in the shared stack.
// Their identifiers are stored in the parameter store so that deployment stacks can
// reference them without a cross-stack export.
package bwcdkdomain

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkapigateway"
	"github.com/basewarphq/bwsc/bwcdk/bwcdkparams"
	"github.com/cockroachdb/errors"
)

// NameServersOutputKey is the output that lists the name servers of a new zone.
const NameServersOutputKey = "HostedZoneNameServers"

const paramsNamespace = "domain"

// Domain exposes the zone and the wildcard certificate.
type Domain interface {
	HostedZone() awsroute53.IHostedZone
	Certificate() awscertificatemanager.ICertificate
	// CustomDomain returns the API Gateway domain settings for "{label}.{zone}".
	CustomDomain(label string) *bwcdkapigateway.CustomDomain
}

// Props configures the Domain construct.
type Props struct {
	// ZoneName is the apex of the hosted zone, e.g. "example.com". Required.
	ZoneName *string
	// ExistingHostedZone is used instead of creating a new zone.
	ExistingHostedZone awsroute53.IHostedZone
}

type domain struct {
	zone        awsroute53.IHostedZone
	certificate awscertificatemanager.ICertificate
}

// New creates the hosted zone, unless one is given, and a DNS validated wildcard
// certificate for it.
func New(scope constructs.Construct, props Props) Domain {
	if props.ZoneName == nil || *props.ZoneName == "" {
		panic(errors.New("zoneName is required"))
	}

	scope = constructs.NewConstruct(scope, jsii.String("Domain"))
	con := &domain{zone: props.ExistingHostedZone}

	if con.zone == nil {
		zone := awsroute53.NewHostedZone(scope, jsii.String("HostedZone"), &awsroute53.HostedZoneProps{
			ZoneName: props.ZoneName,
		})
		con.zone = zone

		awscdk.NewCfnOutput(awscdk.Stack_Of(scope), jsii.String(NameServersOutputKey), &awscdk.CfnOutputProps{
			Value:       awscdk.Fn_Join(jsii.String(","), zone.HostedZoneNameServers()),
			Description: jsii.String("Comma-separated list of NS records for DNS delegation"),
		})
	}

	con.certificate = awscertificatemanager.NewCertificate(scope, jsii.String("WildcardCertificate"),
		&awscertificatemanager.CertificateProps{
			DomainName: jsii.String("*." + *props.ZoneName),
			Validation: awscertificatemanager.CertificateValidation_FromDns(con.zone),
		})

	bwcdkparams.Store(scope, "HostedZoneIDParam", paramsNamespace, "hosted-zone-id",
		con.zone.HostedZoneId())
	bwcdkparams.Store(scope, "CertificateArnParam", paramsNamespace, "wildcard-cert-arn",
		con.certificate.CertificateArn())

	return con
}

// Lookup references a domain created by New in another stack of the same region.
func Lookup(scope constructs.Construct, zoneName string) Domain {
	scope = constructs.NewConstruct(scope, jsii.String("DomainLookup"))

	return &domain{
		zone: awsroute53.HostedZone_FromHostedZoneAttributes(scope, jsii.String("HostedZone"),
			&awsroute53.HostedZoneAttributes{
				HostedZoneId: bwcdkparams.LookupLocal(scope, paramsNamespace, "hosted-zone-id"),
				ZoneName:     jsii.String(zoneName),
			}),
		certificate: awscertificatemanager.Certificate_FromCertificateArn(scope,
			jsii.String("WildcardCertificate"),
			bwcdkparams.LookupLocal(scope, paramsNamespace, "wildcard-cert-arn")),
	}
}

func (d *domain) HostedZone() awsroute53.IHostedZone {
	return d.zone
}

func (d *domain) Certificate() awscertificatemanager.ICertificate {
	return d.certificate
}

func (d *domain) CustomDomain(label string) *bwcdkapigateway.CustomDomain {
	return &bwcdkapigateway.CustomDomain{
		HostedZone:  d.zone,
		Certificate: d.certificate,
		DomainName:  jsii.String(label + "." + *d.zone.ZoneName()),
	}
}
