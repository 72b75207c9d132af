// Command keypolicyupdater backs the Custom::KmsKeyPolicyUpdater resource.
package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/basewarphq/bwsc/bwlwa"
	"github.com/basewarphq/bwsc/lambdas/internal/keypolicy"
	"go.uber.org/fx"
)

func main() {
	bwlwa.NewApp[bwlwa.BaseEnvironment](
		func(m *bwlwa.Mux, u *keypolicy.Updater) {
			m.HandleFunc("POST /l/on-event", bwlwa.CustomResource(u.OnEvent), "on-event")
		},
		bwlwa.WithAWSClient(func(cfg aws.Config) *kms.Client {
			return kms.NewFromConfig(cfg)
		}),
		bwlwa.WithFx(fx.Provide(func(c *kms.Client, cfg aws.Config) *keypolicy.Updater {
			return keypolicy.New(c, cfg.Region)
		})),
	).Run()
}
