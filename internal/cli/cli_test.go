package cli

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlvery/internal/delivery/categorize"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestPasswordCheck(t *testing.T) {
	t.Run("strong password passes", func(t *testing.T) {
		out, err := run(t, "password", "check", "Kq7!mZp2xR")
		require.NoError(t, err)
		assert.Contains(t, out, "[x] At least 8 characters")
		assert.NotContains(t, out, "- Password")
	})

	t.Run("weak password lists violations and fails", func(t *testing.T) {
		out, err := run(t, "password", "check", "abc")
		assert.ErrorIs(t, err, errPasswordRejected)
		assert.Contains(t, out, "- Password must be at least 8 characters long")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, "password", "check", "--json", "Kq7!mZp2xR")
		require.NoError(t, err)
		var a map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &a))
		assert.Equal(t, true, a["valid"])
	})
}

const deliveriesJSON = `[
  {"id":"5b0c1c36-2f0c-4b8e-9d1e-3a7b0f1d2c11","delivery_number":"DLV-00000001","status":"ASSIGNED","priority":"STANDARD",
   "customer_name":"Low Today","scheduled_at":"2026-03-10T08:00:00Z"},
  {"id":"5b0c1c36-2f0c-4b8e-9d1e-3a7b0f1d2c12","delivery_number":"DLV-00000002","status":"ASSIGNED","priority":"EMERGENCY",
   "customer_name":"Urgent Today","scheduled_at":"2026-03-10T10:00:00Z"},
  {"id":"5b0c1c36-2f0c-4b8e-9d1e-3a7b0f1d2c13","delivery_number":"DLV-00000003","status":"ASSIGNED","priority":"STANDARD",
   "customer_name":"Next Week","scheduled_at":"2026-03-17T10:00:00Z"},
  {"id":"5b0c1c36-2f0c-4b8e-9d1e-3a7b0f1d2c14","delivery_number":"DLV-00000004","status":"ASSIGNED","priority":"LOW",
   "customer_name":"Unscheduled"},
  {"id":"5b0c1c36-2f0c-4b8e-9d1e-3a7b0f1d2c12","delivery_number":"DLV-00000002","status":"ASSIGNED","priority":"EMERGENCY",
   "customer_name":"Urgent Today","scheduled_at":"2026-03-10T10:00:00Z"}
]`

func TestDeliveriesCategorize(t *testing.T) {
	file := writeFile(t, "deliveries.json", deliveriesJSON)

	t.Run("json buckets", func(t *testing.T) {
		out, err := run(t, "deliveries", "categorize", "--file", file, "--now", "2026-03-10T09:00:00Z", "--json")
		require.NoError(t, err)

		var res categorize.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Len(t, res.Today, 3)
		assert.Equal(t, "Urgent Today", res.Today[0].CustomerName)
		require.Len(t, res.Pending, 1)
		assert.Equal(t, "Next Week", res.Pending[0].CustomerName)
		assert.Equal(t, 1, res.Defaulted)
	})

	t.Run("table output", func(t *testing.T) {
		out, err := run(t, "deliveries", "categorize", "-f", file, "--now", "2026-03-10T09:00:00Z")
		require.NoError(t, err)
		assert.Contains(t, out, "TODAY (3)")
		assert.Contains(t, out, "PENDING (1)")
		assert.Contains(t, out, "future")
	})

	t.Run("bad reference time", func(t *testing.T) {
		_, err := run(t, "deliveries", "categorize", "-f", file, "--now", "noon")
		assert.Error(t, err)
	})

	t.Run("file is required", func(t *testing.T) {
		_, err := run(t, "deliveries", "categorize")
		assert.Error(t, err)
	})
}

func TestSignatureRender(t *testing.T) {
	strokes := writeFile(t, "strokes.json", `[[{"x":10,"y":10},{"x":60,"y":40},{"x":120,"y":20}],[]]`)
	out := filepath.Join(t.TempDir(), "sig.png")

	msg, err := run(t, "signature", "render", "--file", strokes, "--out", out, "--width", "200")
	require.NoError(t, err)
	assert.Contains(t, msg, "2 strokes")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestSignatureRenderRejectsEmptyStrokes(t *testing.T) {
	strokes := writeFile(t, "empty.json", `[[],[{"x":3,"y":3}]]`)
	out := filepath.Join(t.TempDir(), "sig.png")

	_, err := run(t, "signature", "render", "--file", strokes, "--out", out)
	require.Error(t, err)
	assert.NoFileExists(t, out)
}
