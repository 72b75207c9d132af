package bwlwa

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-lambda-go/cfn"
	"go.uber.org/zap"
)

// CustomResourceResponse is the onEvent result expected by the CDK custom resource
// Provider framework.
type CustomResourceResponse struct {
	PhysicalResourceID string         `json:"PhysicalResourceId,omitempty"`
	Data               map[string]any `json:"Data,omitempty"`
	NoEcho             bool           `json:"NoEcho,omitempty"`
}

// CustomResourceFunc handles one lifecycle event of a custom resource.
type CustomResourceFunc func(ctx context.Context, event cfn.Event) (CustomResourceResponse, error)

// CustomResource adapts fn to the pass-through route Lambda Web Adapter posts the
// raw Provider framework event to, usually "/l/on-event".
//
// A failed event is answered with status 500, the function should list 5xx in
// AWS_LWA_ERROR_STATUS_CODES so that the invocation fails and CloudFormation
// receives the error.
func CustomResource(fn CustomResourceFunc) bhttp.HandlerFunc[context.Context] {
	return func(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
		var event cfn.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			return writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid custom resource event"})
		}

		log := Log(ctx).With(
			zap.String("request_type", string(event.RequestType)),
			zap.String("logical_resource_id", event.LogicalResourceID),
			zap.String("resource_type", event.ResourceType),
		)

		resp, err := fn(ctx, event)
		if err != nil {
			log.Error("custom resource event failed", zap.Error(err))
			return writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if resp.PhysicalResourceID == "" {
			resp.PhysicalResourceID = event.PhysicalResourceID
		}

		log.Info("custom resource event handled", zap.String("physical_resource_id", resp.PhysicalResourceID))
		return writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w bhttp.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
