package hfncore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/socket"
)

const sampleConfig = `{
	"name": "test app",
	"appid": "acme",
	"createdAt": "2026-01-01",
	"dev": {"devtools": "ws://relay.example/us"},
	"packages": [
		{"id": 1, "name": "core", "modules": [], "schemas": [], "rpcs": []}
	]
}`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hfn.json")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestInitIsSingleShot(t *testing.T) {
	t.Cleanup(reset)
	path := writeConfig(t)

	argBytes := codec.EncodeInitArgs(codec.InitArgs{
		SDK:              "go-sdk",
		HasHfnConfigPath: true,
		HfnConfigPath:    path,
	})

	result, err := Init(argBytes)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	r, err := codec.DecodeInitResult(result)
	if err != nil {
		t.Fatalf("DecodeInitResult() error = %v", err)
	}
	if r.UpstreamID == "" {
		t.Error("UpstreamID is empty, want a generated id")
	}
	if len(r.Packages) != 1 {
		t.Errorf("len(Packages) = %d, want 1", len(r.Packages))
	}

	if _, err := Init(argBytes); err == nil {
		t.Error("second Init() error = nil, want an error")
	}
}

func TestSendMessageServerModeRoutesToLocalSocket(t *testing.T) {
	t.Cleanup(reset)
	path := writeConfig(t)

	argBytes := codec.EncodeInitArgs(codec.InitArgs{SDK: "go-sdk", HasHfnConfigPath: true, HfnConfigPath: path})
	if _, err := Init(argBytes); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	rt := core.Load()
	s := socket.New("s1", socket.DefaultPingInterval, socket.DefaultPingTimeout)
	rt.table.Add(s)

	if err := SendMessage("s1", []byte("hello")); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	action, ok := s.NextAction()
	if !ok || string(action.Payload) != "hello" {
		t.Errorf("NextAction() = %+v, %v, want payload hello", action, ok)
	}
}

func TestSendMessageUnknownSocketIsSilentlyDropped(t *testing.T) {
	t.Cleanup(reset)
	path := writeConfig(t)

	argBytes := codec.EncodeInitArgs(codec.InitArgs{SDK: "go-sdk", HasHfnConfigPath: true, HfnConfigPath: path})
	if _, err := Init(argBytes); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := SendMessage("does-not-exist", []byte("x")); err != nil {
		t.Errorf("SendMessage() error = %v, want nil", err)
	}
}

func TestTryReadReportsEmptyThenData(t *testing.T) {
	t.Cleanup(reset)
	path := writeConfig(t)

	argBytes := codec.EncodeInitArgs(codec.InitArgs{SDK: "go-sdk", HasHfnConfigPath: true, HfnConfigPath: path})
	if _, err := Init(argBytes); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	status, _, err := TryRead()
	if err != nil || status != Empty {
		t.Fatalf("TryRead() = %v, %v, want Empty, nil", status, err)
	}

	rt := core.Load()
	rt.deliverMessage("s1", codec.Packet{Kind: codec.KindMessage, PkgID: 7, Payload: []byte("hi")})

	status, data, err := TryRead()
	if err != nil || status != Data {
		t.Fatalf("TryRead() = %v, %v, want Data, nil", status, err)
	}
	pkgID, _, payload, socketID, ok := codec.DecodeHostMessage(data)
	if !ok || pkgID != 7 || string(payload) != "hi" || socketID != "s1" {
		t.Errorf("DecodeHostMessage() = %d, %s, %q, %v, want 7, hi, s1, true", pkgID, payload, socketID, ok)
	}
}

func TestRunBeforeInitFails(t *testing.T) {
	t.Cleanup(reset)
	if err := Run(t.Context(), 0); err == nil {
		t.Error("Run() before Init error = nil, want an error")
	}
}
