package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAugmentedResponse_Body(t *testing.T) {
	resp := &AugmentedResponse{
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"message":"success","code":200,"users":[{"name":"a"}]}`),
	}

	assert.Equal(t, `{"message":"success","code":200,"users":[{"name":"a"}]}`, resp.Text())
	assert.Equal(t, "application/json", resp.GetHeader("content-type"))
	assert.Equal(t, "a", resp.Get("users.0.name").String())
	assert.False(t, resp.Get("missing").Exists())

	var result struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	require.NoError(t, resp.JSON(&result))
	assert.Equal(t, "success", result.Message)
	assert.Equal(t, 200, result.Code)
}

func TestAugmentedResponse_StatusHelpers(t *testing.T) {
	tests := []struct {
		code                                int
		success, redirect, client, server bool
	}{
		{code: 200, success: true},
		{code: 201, success: true},
		{code: 302, redirect: true},
		{code: 404, client: true},
		{code: 500, server: true},
	}

	for _, tt := range tests {
		resp := &AugmentedResponse{StatusCode: tt.code}
		assert.Equal(t, tt.success, resp.IsSuccess(), tt.code)
		assert.Equal(t, tt.redirect, resp.IsRedirect(), tt.code)
		assert.Equal(t, tt.client, resp.IsClientError(), tt.code)
		assert.Equal(t, tt.server, resp.IsServerError(), tt.code)
	}
}

func TestAugmentedResponse_TotalTime(t *testing.T) {
	start := time.Now()
	resp := &AugmentedResponse{Timing: TimingRecord{StartTime: start, ReceiveEnd: start.Add(150 * time.Millisecond)}}
	assert.Equal(t, 150*time.Millisecond, resp.TotalTime())
}
