// Command templatewriter backs the Custom::TemplateWriter resource.
package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/basewarphq/bwsc/bwlwa"
	"github.com/basewarphq/bwsc/lambdas/internal/templatewriter"
	"go.uber.org/fx"
)

func main() {
	bwlwa.NewApp[bwlwa.BaseEnvironment](
		func(m *bwlwa.Mux, w *templatewriter.Writer) {
			m.HandleFunc("POST /l/on-event", bwlwa.CustomResource(w.OnEvent), "on-event")
		},
		bwlwa.WithAWSClient(func(cfg aws.Config) *s3.Client {
			return s3.NewFromConfig(cfg)
		}),
		bwlwa.WithFx(fx.Provide(func(c *s3.Client) *templatewriter.Writer {
			return templatewriter.New(c)
		})),
	).Run()
}
