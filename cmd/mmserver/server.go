package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mmverify/mmcore/internal/coordinator"
	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/mmp"
	"github.com/mmverify/mmcore/internal/mmsource"
)

// Server is the stdio JSON-RPC 2.0 loop of spec §5/§6's editor-facing
// backend, shaped directly on cmd/lsp/server.go's own Content-Length
// framing and request/notification dispatch. Unlike the LSP server it's
// grounded on, there is exactly one document open at a time (spec §5: one
// exclusively-owned database), so the per-URI document map becomes a
// single *coordinator.Coordinator instead.
type Server struct {
	coord  *coordinator.Coordinator
	writer io.Writer
	wmu    sync.Mutex

	// lastState is the most recent applyMmpEdit's resolved pipeline state,
	// guarded by wmu, so a later argument-free getProofString can hand the
	// editor the same uncompressed/compressed text without re-running the
	// pipeline.
	lastState *mmp.State
}

func NewServer(writer io.Writer) *Server {
	if writer == nil {
		writer = os.Stdout
	}
	return &Server{coord: coordinator.New(), writer: writer}
}

// Start reads Content-Length-framed JSON-RPC messages from stdin until
// EOF, dispatching each to handleMessage. Framing is identical to
// cmd/lsp/server.go's: a Content-Length header line, a blank separator
// line, then exactly that many bytes of JSON body.
func (s *Server) Start() {
	reader := bufio.NewReader(os.Stdin)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("error reading header: %v", err)
			}
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "Content-Length: ") {
			continue
		}

		contentLength, err := strconv.Atoi(strings.TrimPrefix(line, "Content-Length: "))
		if err != nil {
			log.Printf("error parsing Content-Length: %v", err)
			continue
		}

		for {
			sep, err := reader.ReadString('\n')
			if err != nil {
				log.Printf("error reading separator: %v", err)
				return
			}
			if strings.TrimRight(sep, "\r\n") == "" {
				break
			}
		}

		content := make([]byte, contentLength)
		if _, err := io.ReadFull(reader, content); err != nil {
			log.Printf("error reading body: %v", err)
			break
		}

		if err := s.handleMessage(content); err != nil {
			log.Printf("error handling message: %v", err)
		}
	}

	// A request arriving mid-run has its predecessor's pipeline cancelled
	// before a new one starts (spec §5); on EOF there's nothing left to
	// cancel for, but any edit in flight when the client hung up should not
	// be left spinning against an abandoned connection.
	s.coord.Cancel()
}

func (s *Server) handleMessage(content []byte) error {
	var base struct {
		Jsonrpc string          `json:"jsonrpc"`
		ID      interface{}     `json:"id,omitempty"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(content, &base); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}

	result, rpcErr := s.dispatch(base.Method, base.Params)
	if base.ID == nil {
		// Notification: no response is sent, win or lose.
		if rpcErr != nil {
			log.Printf("notification %s failed: %s", base.Method, rpcErr.Message)
		}
		return nil
	}
	return s.sendMessage(ResponseMessage{Jsonrpc: "2.0", ID: base.ID, Result: result, Error: rpcErr})
}

// dispatch implements spec §2.6's four-method surface plus writeDatabase,
// the save-back counterpart to openDatabase the coordinator already
// exposes via WriteDatabase, and commitMmpEdit, which lands the last
// applyMmpEdit result via Coordinator.CommitMmpEdit.
func (s *Server) dispatch(method string, raw json.RawMessage) (interface{}, *Error) {
	switch method {
	case "openDatabase":
		var p OpenDatabaseParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &Error{Code: errInvalidParams, Message: err.Error()}
		}
		return s.openDatabase(p)

	case "applyMmpEdit":
		var p ApplyMmpEditParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &Error{Code: errInvalidParams, Message: err.Error()}
		}
		return s.applyMmpEdit(p)

	case "cancel":
		s.coord.Cancel()
		return nil, nil

	case "writeDatabase":
		return s.writeDatabase()

	case "commitMmpEdit":
		return s.commitMmpEdit()

	case "getProofString":
		return s.getProofString()

	default:
		return nil, &Error{Code: errMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
	}
}

func (s *Server) openDatabase(p OpenDatabaseParams) (interface{}, *Error) {
	if err := s.coord.OpenDatabase(p.Path); err != nil {
		return nil, &Error{Code: errInternal, Message: err.Error()}
	}
	tc, th, _ := s.coord.Stats()
	return OpenDatabaseResult{TypecodeCount: tc, TheoremCount: th}, nil
}

func (s *Server) applyMmpEdit(p ApplyMmpEditParams) (interface{}, *Error) {
	ctx, err := s.coord.ApplyMmpEdit(p.Source)
	if err != nil {
		return nil, &Error{Code: errInternal, Message: err.Error()}
	}
	st := ctx.Value.(*mmp.State)
	s.wmu.Lock()
	s.lastState = st
	s.wmu.Unlock()

	return ApplyMmpEditResult{
		Diagnostics:  convertDiagnostics(ctx.Diagnostics.Errors),
		Steps:        convertSteps(st),
		Uncompressed: st.Uncompressed,
		Compressed:   st.Compressed,
	}, nil
}

func (s *Server) writeDatabase() (interface{}, *Error) {
	err := s.coord.WriteDatabase(func(root *database.Header) []byte {
		return mmsource.Render(root, mmsource.DefaultWidth)
	})
	if err != nil {
		return nil, &Error{Code: errInternal, Message: err.Error()}
	}
	return WriteDatabaseResult{Written: true}, nil
}

// commitMmpEdit inserts (or replaces, by label) the theorem the most
// recent applyMmpEdit resolved into the coordinator's in-memory tree,
// making it visible to a following writeDatabase call — the edit-commit
// step spec.md's own PURPOSE section describes, previously missing
// end-to-end.
func (s *Server) commitMmpEdit() (interface{}, *Error) {
	s.wmu.Lock()
	st := s.lastState
	s.wmu.Unlock()
	if st == nil {
		return nil, &Error{Code: errInvalidRequest, Message: "no applyMmpEdit result to commit"}
	}
	if err := s.coord.CommitMmpEdit(st); err != nil {
		return nil, &Error{Code: errInternal, Message: err.Error()}
	}
	return CommitMmpEditResult{Label: st.TheoremLabel}, nil
}

func (s *Server) getProofString() (interface{}, *Error) {
	s.wmu.Lock()
	st := s.lastState
	s.wmu.Unlock()
	if st == nil {
		return nil, &Error{Code: errInvalidRequest, Message: "no applyMmpEdit result to read a proof string from"}
	}
	return GetProofStringResult{Uncompressed: st.Uncompressed, Compressed: st.Compressed}, nil
}

func convertDiagnostics(errs []*diagnostics.DiagnosticError) []Diagnostic {
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		out = append(out, Diagnostic{
			Code:      string(e.Code),
			Message:   e.Message,
			StartLine: e.Span.Start.Line,
			StartCol:  e.Span.Start.Column,
			EndLine:   e.Span.End.Line,
			EndCol:    e.Span.End.Column,
		})
	}
	return out
}

func statusName(k mmp.ProofLineStatusKind) string {
	switch k {
	case mmp.StatusCorrect:
		return "correct"
	case mmp.StatusCorrectRecursively:
		return "correctRecursively"
	case mmp.StatusErr:
		return "err"
	case mmp.StatusUnified:
		return "unified"
	default:
		return "none"
	}
}

func convertSteps(st *mmp.State) []StepStatus {
	out := make([]StepStatus, 0, len(st.Steps))
	for _, step := range st.Steps {
		out = append(out, StepStatus{
			Name:       step.Raw.Name,
			Status:     statusName(step.Status.Kind),
			StepName:   step.Status.Flags.StepName,
			Hyps:       step.Status.Flags.Hyps,
			Ref:        step.Status.Flags.Ref,
			Expression: step.Status.Flags.Expression,
		})
	}
	return out
}

func (s *Server) sendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err = fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n%s", len(data), data)
	return err
}
