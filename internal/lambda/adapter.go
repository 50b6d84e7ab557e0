// Package lambda adapts the chi router to AWS Lambda invocation events so the
// same API binary can run behind an ALB or API Gateway instead of a plain
// listener.
package lambda

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// Adapter routes raw Lambda events through an http.Handler. API Gateway v1
// proxy events are handled natively; ALB target-group events are translated
// to the API Gateway shape first, then translated back on the way out.
type Adapter struct {
	proxy *httpadapter.HandlerAdapter
}

func New(h http.Handler) *Adapter {
	return &Adapter{proxy: httpadapter.New(h)}
}

// albEnvelope is the minimal probe for event-type detection: only ALB events
// carry a requestContext.elb block.
type albEnvelope struct {
	RequestContext struct {
		ELB *struct {
			TargetGroupArn string `json:"targetGroupArn"`
		} `json:"elb"`
	} `json:"requestContext"`
}

// Handle is the Lambda entry point. The payload stays raw until the event
// type is known.
func (a *Adapter) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	var probe albEnvelope
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, err
	}

	if probe.RequestContext.ELB != nil {
		var albReq events.ALBTargetGroupRequest
		if err := json.Unmarshal(payload, &albReq); err != nil {
			return nil, err
		}
		return a.handleALB(ctx, albReq)
	}

	var apiReq events.APIGatewayProxyRequest
	if err := json.Unmarshal(payload, &apiReq); err != nil {
		return nil, err
	}
	return a.proxy.ProxyWithContext(ctx, apiReq)
}

func (a *Adapter) handleALB(ctx context.Context, req events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	logger.L().Debug("translating alb event", zap.String("path", req.Path))

	resp, err := a.proxy.ProxyWithContext(ctx, toAPIGatewayRequest(req))
	if err != nil {
		return events.ALBTargetGroupResponse{}, err
	}
	return toALBResponse(resp), nil
}

func toAPIGatewayRequest(req events.ALBTargetGroupRequest) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:                      req.HTTPMethod,
		Path:                            req.Path,
		QueryStringParameters:           req.QueryStringParameters,
		MultiValueQueryStringParameters: req.MultiValueQueryStringParameters,
		Headers:                         req.Headers,
		MultiValueHeaders:               req.MultiValueHeaders,
		Body:                            req.Body,
		IsBase64Encoded:                 req.IsBase64Encoded,
	}
}

func toALBResponse(resp events.APIGatewayProxyResponse) events.ALBTargetGroupResponse {
	out := events.ALBTargetGroupResponse{
		StatusCode:        resp.StatusCode,
		StatusDescription: http.StatusText(resp.StatusCode),
		Headers:           resp.Headers,
		MultiValueHeaders: resp.MultiValueHeaders,
		Body:              resp.Body,
		IsBase64Encoded:   resp.IsBase64Encoded,
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	return out
}
