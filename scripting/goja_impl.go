package scripting

import (
	"context"
	"errors"

	"github.com/dop251/goja"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	return &GojaEngine{vm: goja.New()}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause := interrupted.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	return val.Export(), nil
}

func (e *GojaEngine) RegisterDOM(dom ViewerDOM) error {
	vm := e.vm
	arg := func(call goja.FunctionCall, i int) string {
		if len(call.Arguments) <= i {
			return ""
		}
		return call.Arguments[i].String()
	}

	app := vm.NewObject()
	if err := app.Set("alert", func(call goja.FunctionCall) goja.Value {
		dom.Alert(arg(call, 0))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := app.Set("launchURL", func(call goja.FunctionCall) goja.Value {
		dom.LaunchURL(arg(call, 0))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := app.Set("execMenuItem", func(call goja.FunctionCall) goja.Value {
		dom.ExecMenuItem(arg(call, 0))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := vm.Set("app", app); err != nil {
		return err
	}

	if err := vm.Set("getURL", func(call goja.FunctionCall) goja.Value {
		dom.LaunchURL(arg(call, 0))
		return goja.Undefined()
	}); err != nil {
		return err
	}

	global := vm.GlobalObject()
	if err := global.DefineAccessorProperty("pageNum",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(dom.CurrentPage())
		}),
		vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				dom.GoToPage(int(call.Arguments[0].ToInteger()))
			}
			return goja.Undefined()
		}),
		goja.FLAG_TRUE,
		goja.FLAG_TRUE,
	); err != nil {
		return err
	}
	return global.DefineAccessorProperty("numPages",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(dom.PageCount())
		}),
		nil,
		goja.FLAG_TRUE,
		goja.FLAG_TRUE,
	)
}
