package lambda

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-stack-deploy/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func echoHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/templates", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	return mux
}

func TestHandleALBEvent(t *testing.T) {
	a := New(echoHandler())

	albEvent := events.ALBTargetGroupRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/templates",
		Headers:    map[string]string{"accept": "application/json"},
		RequestContext: events.ALBTargetGroupRequestContext{
			ELB: events.ELBContext{TargetGroupArn: "arn:aws:elasticloadbalancing:::targetgroup/x"},
		},
	}
	payload, err := json.Marshal(albEvent)
	require.NoError(t, err)

	out, err := a.Handle(context.Background(), payload)
	require.NoError(t, err)

	resp, ok := out.(events.ALBTargetGroupResponse)
	require.True(t, ok, "ALB events must produce ALB responses")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", resp.StatusDescription)
	assert.JSONEq(t, `{"success":true}`, resp.Body)
}

func TestHandleAPIGatewayEvent(t *testing.T) {
	a := New(echoHandler())

	apiEvent := events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/templates",
	}
	payload, err := json.Marshal(apiEvent)
	require.NoError(t, err)

	out, err := a.Handle(context.Background(), payload)
	require.NoError(t, err)

	resp, ok := out.(events.APIGatewayProxyResponse)
	require.True(t, ok, "API Gateway events must produce API Gateway responses")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, resp.Body)
}

func TestHandleNotFoundRoute(t *testing.T) {
	a := New(echoHandler())

	payload, _ := json.Marshal(events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/nope",
	})
	out, err := a.Handle(context.Background(), payload)
	require.NoError(t, err)

	resp := out.(events.APIGatewayProxyResponse)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
