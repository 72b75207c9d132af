// Package templatewriter implements the custom resource that copies an S3 object
// while substituting placeholders with values resolved at deploy time.
package templatewriter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/basewarphq/bwsc/bwlwa"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutputKeyAttribute is the attribute holding the key of the written object.
const OutputKeyAttribute = "TemplateOutputKey"

// Value replaces every occurrence of ID in the template.
type Value struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Properties are the resource properties of a Custom::TemplateWriter.
type Properties struct {
	TemplateValues       []Value
	TemplateInputBucket  string
	TemplateInputKey     string
	TemplateOutputBucket string
}

// ParseProperties reads the resource properties. TemplateValues is a JSON document
// of the form {"templateValues":[{"id":"...","value":"..."}]}.
func ParseProperties(props map[string]any) (Properties, error) {
	var p Properties
	var errs []string
	str := func(name string) string {
		s, ok := props[name].(string)
		if !ok || s == "" {
			errs = append(errs, name)
		}
		return s
	}

	raw := str("TemplateValues")
	p.TemplateInputBucket = str("TemplateInputBucket")
	p.TemplateInputKey = str("TemplateInputKey")
	p.TemplateOutputBucket = str("TemplateOutputBucket")
	if len(errs) > 0 {
		return p, errors.Newf("missing resource properties: %s", strings.Join(errs, ", "))
	}

	var doc struct {
		TemplateValues []Value `json:"templateValues"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return p, errors.Wrap(err, "invalid TemplateValues")
	}
	p.TemplateValues = doc.TemplateValues
	return p, nil
}

// Render substitutes the values in order.
func Render(template string, values []Value) string {
	for _, v := range values {
		template = strings.ReplaceAll(template, v.ID, v.Value)
	}
	return template
}

// ObjectStore is the part of the S3 API the writer uses.
type ObjectStore interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Writer handles the custom resource events.
type Writer struct {
	store  ObjectStore
	newKey func() string
}

// New creates a Writer that names output objects with random UUIDs.
func New(store ObjectStore) *Writer {
	return &Writer{store: store, newKey: uuid.NewString}
}

// OnEvent writes a rendered copy of the template on create and update. The output
// object is left in place on delete, it lives in the asset bucket.
func (w *Writer) OnEvent(ctx context.Context, event cfn.Event) (bwlwa.CustomResourceResponse, error) {
	if event.RequestType == cfn.RequestDelete {
		return bwlwa.CustomResourceResponse{PhysicalResourceID: event.PhysicalResourceID}, nil
	}

	props, err := ParseProperties(event.ResourceProperties)
	if err != nil {
		return bwlwa.CustomResourceResponse{}, err
	}

	obj, err := w.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(props.TemplateInputBucket),
		Key:    aws.String(props.TemplateInputKey),
	})
	if err != nil {
		return bwlwa.CustomResourceResponse{}, errors.Wrapf(err, "failed to get s3://%s/%s",
			props.TemplateInputBucket, props.TemplateInputKey)
	}
	defer obj.Body.Close()

	template, err := io.ReadAll(obj.Body)
	if err != nil {
		return bwlwa.CustomResourceResponse{}, errors.Wrap(err, "failed to read template")
	}

	key := w.newKey()
	if _, err := w.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(props.TemplateOutputBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte(Render(string(template), props.TemplateValues))),
	}); err != nil {
		return bwlwa.CustomResourceResponse{}, errors.Wrapf(err, "failed to put s3://%s/%s",
			props.TemplateOutputBucket, key)
	}

	bwlwa.Log(ctx).Info("template written",
		zap.String("input_key", props.TemplateInputKey),
		zap.String("output_key", key),
		zap.Int("values", len(props.TemplateValues)))

	return bwlwa.CustomResourceResponse{
		PhysicalResourceID: event.PhysicalResourceID,
		Data:               map[string]any{OutputKeyAttribute: key},
	}, nil
}
