package sandbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/codeper/playground/internal/preview/composer"
	"github.com/codeper/playground/internal/preview/relay"
)

// Runtime executes one composed document in a dedicated goja VM. A Runtime
// is single use and must not be shared between goroutines.
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	post    func(relay.Message)
	logger  *zap.Logger
	console *zap.Logger
	dom     *DOM

	timers   timerQueue
	executed int
	errors   int
}

// NewRuntime creates a runtime whose window.parent.postMessage calls post.
func NewRuntime(config Config, post func(relay.Message), logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	if post == nil {
		post = func(relay.Message) {}
	}
	if config.MaxTimers <= 0 {
		config.MaxTimers = DefaultConfig().MaxTimers
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	return &Runtime{
		vm:      vm,
		config:  config,
		post:    post,
		logger:  logger,
		console: logger.Named("console"),
	}
}

// Run parses document, runs its shim and user scripts, dispatches the load
// events and drains pending timers. It stops early when ctx is done.
func (r *Runtime) Run(ctx context.Context, document string) Report {
	start := time.Now()
	report := Report{Result: ResultOK}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		r.logger.Warn("sandbox document parse failed", zap.Error(err))
		report.Result = ResultError
		report.Duration = time.Since(start)
		return report
	}
	r.dom = newDOM(r.vm, doc)
	r.setupGlobals()

	r.execute(ctx, doc)

	report.Duration = time.Since(start)
	report.Errors = r.errors
	report.Timers = r.executed
	report.Listeners = r.dom.Listeners()
	report.Body = r.dom.BodyHTML()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		report.Result = ResultTimeout
	case ctx.Err() != nil:
		report.Result = ResultCancelled
	case r.errors > 0:
		report.Result = ResultError
	}
	return report
}

func (r *Runtime) execute(ctx context.Context, doc *goquery.Document) {
	for _, marker := range []string{composer.MarkerShim, composer.MarkerScript} {
		sel := doc.Find("script[" + composer.MarkerAttr + "=" + marker + "]").Last()
		if sel.Length() == 0 {
			continue
		}
		if ctx.Err() != nil || !r.runScript(marker, sel.Text()) {
			return
		}
	}

	_ = r.vm.GlobalObject().Get("document").ToObject(r.vm).Set("readyState", "complete")
	for _, dispatch := range []struct{ target, event string }{
		{targetDocument, "DOMContentLoaded"},
		{targetWindow, "DOMContentLoaded"},
		{targetWindow, "load"},
	} {
		for _, fn := range r.dom.handlers(dispatch.target, dispatch.event) {
			if ctx.Err() != nil || !r.call(fn, "listener", r.event(dispatch.event)) {
				return
			}
		}
	}

	r.drainTimers(ctx)
}

// runScript runs src and reports uncaught errors through window.onerror. It
// returns false once the VM has been interrupted.
func (r *Runtime) runScript(name, src string) bool {
	_, err := r.vm.RunScript(name, src)
	return r.handle(err, name)
}

func (r *Runtime) call(fn goja.Callable, source string, args ...goja.Value) bool {
	_, err := fn(goja.Undefined(), args...)
	return r.handle(err, source)
}

func (r *Runtime) handle(err error, source string) bool {
	if err == nil {
		return true
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		r.logger.Debug("sandbox interrupted", zap.String("source", source), zap.Any("reason", interrupted.Value()))
		return false
	}
	r.uncaught(err, source)
	return true
}

// uncaught mirrors a browser's global error path: window.onerror sees the
// message and the thrown value.
func (r *Runtime) uncaught(err error, source string) {
	r.errors++
	message := err.Error()
	thrown := goja.Undefined()
	var ex *goja.Exception
	if errors.As(err, &ex) {
		thrown = ex.Value()
		message = "Uncaught " + thrown.String()
	}

	onerror, ok := goja.AssertFunction(r.vm.GlobalObject().Get("onerror"))
	if !ok {
		r.console.Debug(message, zap.String("method", "error"), zap.String("source", source))
		return
	}
	_, cbErr := onerror(r.vm.GlobalObject(),
		r.vm.ToValue(message), r.vm.ToValue(source), r.vm.ToValue(0), r.vm.ToValue(0), thrown)
	if cbErr != nil {
		r.logger.Debug("onerror handler failed", zap.Error(cbErr))
	}
}

// setupGlobals builds the window the composed document expects.
func (r *Runtime) setupGlobals() {
	vm := r.vm
	global := vm.GlobalObject()

	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = vm.Set(name, goja.Undefined())
	}

	_ = global.Set("window", global)
	_ = global.Set("self", global)

	parent := vm.NewObject()
	_ = parent.Set("postMessage", r.postMessage)
	_ = global.Set("parent", parent)
	_ = global.Set("top", parent)

	_ = global.Set("console", r.baseConsole())
	_ = global.Set("document", r.dom.document())
	_ = global.Set("navigator", map[string]interface{}{"userAgent": "playground-sandbox", "language": "en-US"})
	_ = global.Set("location", map[string]interface{}{"href": "about:blank", "origin": "null"})
	_ = global.Set("innerWidth", 1280)
	_ = global.Set("innerHeight", 720)
	_ = global.Set("devicePixelRatio", 1)

	// Opaque origins have no storage.
	for _, name := range []string{"localStorage", "sessionStorage"} {
		storage := name
		_ = global.DefineAccessorProperty(storage, vm.ToValue(func(goja.FunctionCall) goja.Value {
			r.dom.throw("SecurityError", "Failed to read the '"+storage+"' property from 'Window': The document is sandboxed and lacks the 'allow-same-origin' flag.")
			return goja.Undefined()
		}), nil, goja.FLAG_TRUE, goja.FLAG_FALSE)
	}

	_ = global.Set("addEventListener", r.dom.addListener(targetWindow))
	_ = global.Set("removeEventListener", r.dom.removeListener(targetWindow))
	_ = global.Set("getComputedStyle", func(call goja.FunctionCall) goja.Value {
		if n := r.dom.unwrap(call.Argument(0)); n != nil {
			return r.dom.style(n)
		}
		return vm.NewObject()
	})

	_ = global.Set("alert", func(call goja.FunctionCall) goja.Value {
		r.console.Debug(call.Argument(0).String(), zap.String("method", "alert"))
		return goja.Undefined()
	})
	_ = global.Set("confirm", func(call goja.FunctionCall) goja.Value {
		r.console.Debug(call.Argument(0).String(), zap.String("method", "confirm"))
		return vm.ToValue(false)
	})
	_ = global.Set("prompt", func(call goja.FunctionCall) goja.Value {
		r.console.Debug(call.Argument(0).String(), zap.String("method", "prompt"))
		return goja.Null()
	})

	_ = global.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(r.schedule(call.Argument(0), timerDelay(call.Argument(1)), call.Arguments))
	})
	_ = global.Set("clearTimeout", func(call goja.FunctionCall) goja.Value {
		r.timers.cancel(call.Argument(0).ToInteger())
		return goja.Undefined()
	})
	_ = global.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(r.schedule(call.Argument(0), frameInterval, nil))
	})
	_ = global.Set("cancelAnimationFrame", func(call goja.FunctionCall) goja.Value {
		r.timers.cancel(call.Argument(0).ToInteger())
		return goja.Undefined()
	})
	// Intervals never fire headlessly.
	_ = global.Set("setInterval", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(r.timers.reserve())
	})
	_ = global.Set("clearInterval", func(goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
}

// baseConsole is the console the shim wraps. Output goes to the debug log.
func (r *Runtime) baseConsole() *goja.Object {
	console := r.vm.NewObject()
	for _, method := range []string{"log", "info", "debug", "warn", "error", "table", "trace", "dir", "group", "groupEnd"} {
		level := method
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			r.console.Debug(strings.Join(parts, " "), zap.String("method", level))
			return goja.Undefined()
		})
	}
	return console
}

// postMessage is window.parent.postMessage. The payload is copied out of the
// VM before it is posted.
func (r *Runtime) postMessage(call goja.FunctionCall) goja.Value {
	r.post(decodeMessage(call.Argument(0).Export()))
	return goja.Undefined()
}

func decodeMessage(v interface{}) relay.Message {
	m, ok := v.(map[string]interface{})
	if !ok {
		return relay.Message{}
	}
	var msg relay.Message
	msg.Type, _ = m["type"].(string)
	method, _ := m["method"].(string)
	msg.Method = relay.Method(method)
	if args, ok := m["args"].([]interface{}); ok {
		msg.Args = args
	}
	return msg
}

func (r *Runtime) event(name string) goja.Value {
	ev := r.vm.NewObject()
	_ = ev.Set("type", name)
	_ = ev.Set("timeStamp", r.timers.clock)
	_ = ev.Set("preventDefault", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = ev.Set("stopPropagation", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	return ev
}
