package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// sampleSource mirrors internal/coordinator's own fixture: one syntax
// axiom (wi) and one hypothesis-free logical axiom (ax-id) bound to wff
// through a logicaltypecode directive.
const sampleSource = `$( $j syntaxtypecode "wff" ; logicaltypecode "|-" as "wff" ; $)
$c wff ( -> |- $.
$v ph ps $.
wph $f wff ph $.
wps $f wff ps $.
wi $a wff ( ph -> ps ) $.
ax-id $a |- ( ph -> ph ) $.
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.mm")
	if err := os.WriteFile(path, []byte(sampleSource), 0o644); err != nil {
		t.Fatalf("writing sample database: %v", err)
	}
	return path
}

func call(s *Server, id int, method string, params interface{}) (ResponseMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return ResponseMessage{}, err
		}
		raw = data
	}
	result, rpcErr := s.dispatch(method, raw)
	return ResponseMessage{Jsonrpc: "2.0", ID: id, Result: result, Error: rpcErr}, nil
}

func TestDispatchOpenDatabaseReportsCounts(t *testing.T) {
	s := NewServer(&bytes.Buffer{})
	resp, err := call(s, 1, "openDatabase", OpenDatabaseParams{Path: writeSample(t)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("openDatabase: %+v", resp.Error)
	}
	res, ok := resp.Result.(OpenDatabaseResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if res.TypecodeCount != 1 {
		t.Fatalf("expected 1 typecode, got %d", res.TypecodeCount)
	}
	if res.TheoremCount != 2 {
		t.Fatalf("expected 2 theorem records (wi, ax-id), got %d", res.TheoremCount)
	}
}

func TestDispatchApplyMmpEditUnifiesCleanly(t *testing.T) {
	s := NewServer(&bytes.Buffer{})
	if resp, err := call(s, 1, "openDatabase", OpenDatabaseParams{Path: writeSample(t)}); err != nil || resp.Error != nil {
		t.Fatalf("openDatabase: err=%v resp=%+v", err, resp)
	}

	src := "$theorem mythm\nqed::ax-id |- ( ps -> ps )\n"
	resp, err := call(s, 2, "applyMmpEdit", ApplyMmpEditParams{Source: src})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("applyMmpEdit: %+v", resp.Error)
	}
	res, ok := resp.Result.(ApplyMmpEditResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", res.Diagnostics)
	}

	// getProofString should now return whatever applyMmpEdit just produced.
	gresp, err := call(s, 3, "getProofString", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gresp.Error != nil {
		t.Fatalf("getProofString: %+v", gresp.Error)
	}
}

func TestDispatchCommitMmpEditInsertsAndPersistsTheorem(t *testing.T) {
	s := NewServer(&bytes.Buffer{})
	path := writeSample(t)
	if resp, err := call(s, 1, "openDatabase", OpenDatabaseParams{Path: path}); err != nil || resp.Error != nil {
		t.Fatalf("openDatabase: err=%v resp=%+v", err, resp)
	}

	src := "$theorem mythm\nqed::ax-id |- ( ps -> ps )\n"
	if resp, err := call(s, 2, "applyMmpEdit", ApplyMmpEditParams{Source: src}); err != nil || resp.Error != nil {
		t.Fatalf("applyMmpEdit: err=%v resp=%+v", err, resp)
	}

	resp, err := call(s, 3, "commitMmpEdit", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("commitMmpEdit: %+v", resp.Error)
	}
	res, ok := resp.Result.(CommitMmpEditResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if res.Label != "mythm" {
		t.Fatalf("expected label mythm, got %q", res.Label)
	}

	if resp, err := call(s, 4, "writeDatabase", nil); err != nil || resp.Error != nil {
		t.Fatalf("writeDatabase: err=%v resp=%+v", err, resp)
	}
	out, rerr := os.ReadFile(path)
	if rerr != nil {
		t.Fatalf("reading written database: %v", rerr)
	}
	if !bytes.Contains(out, []byte("mythm")) {
		t.Fatalf("expected the written database to contain the committed theorem mythm, got:\n%s", out)
	}
}

func TestDispatchCommitMmpEditFailsWithoutAPriorEdit(t *testing.T) {
	s := NewServer(&bytes.Buffer{})
	if resp, err := call(s, 1, "openDatabase", OpenDatabaseParams{Path: writeSample(t)}); err != nil || resp.Error != nil {
		t.Fatalf("openDatabase: err=%v resp=%+v", err, resp)
	}
	resp, err := call(s, 2, "commitMmpEdit", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error committing with no prior applyMmpEdit result")
	}
}

func TestDispatchGetProofStringBeforeAnyEditFails(t *testing.T) {
	s := NewServer(&bytes.Buffer{})
	resp, err := call(s, 1, "getProofString", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error when no applyMmpEdit has run yet")
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	s := NewServer(&bytes.Buffer{})
	resp, err := call(s, 1, "textDocument/hover", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != errMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp.Error)
	}
}

func TestHandleMessageFramesContentLength(t *testing.T) {
	var buf bytes.Buffer
	s := NewServer(&buf)
	body, err := json.Marshal(RequestMessage{Jsonrpc: "2.0", ID: 1, Method: "getProofString"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := s.handleMessage(body); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("Content-Length: ")) {
		t.Fatalf("expected Content-Length framed response, got %q", buf.String())
	}
}
