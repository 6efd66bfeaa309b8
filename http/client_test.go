package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/deepdiff"
	enveyehttp "github.com/usertbera/enveye/http"
	"github.com/usertbera/enveye/session"
)

func TestExplainer_Explain(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/explain", r.URL.Path)
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"explanation": "- DB port moved from 5432 to 5433"}`))
	}))
	t.Cleanup(srv.Close)

	diff, err := deepdiff.ParseBytes([]byte(`{"values_changed": {"root['db']['port']": {"new_value": 5433, "old_value": 5432}}}`))
	require.NoError(t, err)

	explainer := enveyehttp.NewExplainer(srv.URL + "/")
	text, err := explainer.Explain(context.Background(), enveye.ExplanationContext{
		Diff:         diff,
		ErrorMessage: "connection refused",
		LogPath:      "/var/log/app.log",
	})

	require.NoError(t, err)
	assert.Equal(t, "- DB port moved from 5432 to 5433", text)

	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.NotEmpty(t, gotHeader.Get("X-Request-ID"))
	assert.JSONEq(t, string(diff.Raw), gjson.GetBytes(gotBody, "diff").Raw)
	assert.Equal(t, "connection refused", gjson.GetBytes(gotBody, "error_message").String())
	assert.Equal(t, "/var/log/app.log", gjson.GetBytes(gotBody, "log_path").String())
	assert.Equal(t, gjson.Null, gjson.GetBytes(gotBody, "error_screenshot").Type)
	assert.True(t, gjson.GetBytes(gotBody, "error_screenshot").Exists(), "absent screenshot is sent as null")
}

func TestEncodeRequest(t *testing.T) {
	t.Parallel()

	t.Run("built diff without screenshot", func(t *testing.T) {
		t.Parallel()

		body, err := enveyehttp.EncodeRequest(enveye.ExplanationContext{
			Diff: &enveye.StructuralDiff{
				DictionaryItemAdded: []enveye.Entry{{Path: "root['a']", Value: enveye.MustValueOf(1)}},
			},
			ErrorMessage: "x",
		})

		require.NoError(t, err)
		assert.Equal(t,
			`{"diff":{"dictionary_item_added":{"root['a']":1}},"error_message":"x","error_screenshot":null,"log_path":""}`,
			string(body))
	})

	t.Run("nil diff is an empty object", func(t *testing.T) {
		t.Parallel()

		body, err := enveyehttp.EncodeRequest(enveye.ExplanationContext{})

		require.NoError(t, err)
		assert.Equal(t, "{}", gjson.GetBytes(body, "diff").Raw)
	})

	t.Run("screenshot is sent as data URI", func(t *testing.T) {
		t.Parallel()

		shot, err := enveye.EncodeScreenshot([]byte{0x89, 'P', 'N', 'G'}, "image/png")
		require.NoError(t, err)

		body, err := enveyehttp.EncodeRequest(enveye.ExplanationContext{ErrorScreenshot: shot})

		require.NoError(t, err)
		assert.Equal(t, shot.DataURI, gjson.GetBytes(body, "error_screenshot").String())
	})
}

func TestExplainer_Explain_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"detail": "boom"}`, nil},
		{"not found", http.StatusNotFound, ``, nil},
		{"error envelope", http.StatusOK, `{"error": "quota exceeded"}`, enveyehttp.ErrMalformedResponse},
		{"explanation not a string", http.StatusOK, `{"explanation": 42}`, enveyehttp.ErrMalformedResponse},
		{"invalid JSON", http.StatusOK, `Internal Server Error`, enveyehttp.ErrMalformedResponse},
		{"empty body", http.StatusOK, ``, enveyehttp.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := enveyehttp.NewExplainer(srv.URL).Explain(context.Background(), enveye.ExplanationContext{})

			require.Error(t, err)
			assert.ErrorIs(t, err, enveye.ErrRequestFailed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var statusErr *enveyehttp.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.Code)
		})
	}
}

func TestExplainer_Explain_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := enveyehttp.NewExplainer(url).Explain(context.Background(), enveye.ExplanationContext{})

	require.Error(t, err)
	assert.ErrorIs(t, err, enveye.ErrRequestFailed)
}

func TestExplainer_Explain_ContextCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := enveyehttp.NewExplainer(srv.URL).Explain(ctx, enveye.ExplanationContext{})

	require.Error(t, err)
	assert.ErrorIs(t, err, enveye.ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExplainer_WithOrchestrator_ServerErrorEndsFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	o := session.New(enveyehttp.NewExplainer(srv.URL))

	state := o.Explain(context.Background())

	assert.Equal(t, session.StatusFailed, state.Status)
	assert.Equal(t, enveye.RequestFailedReason, state.Reason)
}
