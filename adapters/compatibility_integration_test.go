package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	credcommand "github.com/goliatone/go-credentials-store/command"
	"github.com/goliatone/go-credentials-store/adapters/gocommand"
	"github.com/goliatone/go-credentials-store/adapters/gojob"
	"github.com/goliatone/go-credentials-store/adapters/gologger"
	"github.com/goliatone/go-credentials-store/core"
	"github.com/goliatone/go-credentials-store/store/memory"
)

// TestRuntimeCompatibility_GoJobGoCommandGoLogger exercises the three
// adapters together the way a host wiring a flush worker would: resolve a
// logger, enqueue a flush request through the go-job bridge, and mirror a
// command registration into go-job's queue registry.
func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("credentials-store", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueProbe := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueProbe)
	if err := enqueueAdapter.Enqueue(ctx, &core.FlushRequest{
		StoreID:     "store-1",
		TargetToken: "root:abc",
	}); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if enqueueProbe.last == nil || enqueueProbe.last.ScriptPath != "store-1" {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("credentials.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

// TestRuntimeCompatibility_CommandDispatchThroughWrappers confirms the
// registry/dispatcher wrapper wiring works against this module's own CQRS
// messages, not just the go-command library's generic test fixtures.
func TestRuntimeCompatibility_CommandDispatchThroughWrappers(t *testing.T) {
	engine, err := core.NewService(core.DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc := credcommand.NewStoreMutationService(engine)
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	addSub, err := gocommand.RegisterAndSubscribe(adapter, credcommand.NewAddCredentialCommand(svc))
	if err != nil {
		t.Fatalf("register add wrapper: %v", err)
	}
	defer addSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	store := memory.New()
	if err := gocommand.Dispatch(context.Background(), credcommand.AddCredentialMessage{
		Target: core.Context{Kind: core.ContextKindRoot},
		Store:  store,
		Domain: core.Domain{},
		Credential: core.Credential{
			ID:          "cred-dispatched",
			Scope:       core.ScopeGlobal,
			TypeTag:     core.CredentialTypeSecretText,
			Description: "compat check",
		},
	}); err != nil {
		t.Fatalf("dispatch add credential command: %v", err)
	}
	if len(store.Credentials(core.Domain{})) != 1 {
		t.Fatalf("expected credential to reach the store through the dispatcher")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "credentials.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
