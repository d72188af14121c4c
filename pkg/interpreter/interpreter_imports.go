package interpreter

import (
	"errors"
	"log/slog"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/runtime"
)

// ModuleLoader resolves an imported module name to an executed module.
// Implementations own search paths, caching and cycle detection, and call
// ExecuteModule to run a module body.
type ModuleLoader interface {
	LoadModule(interp *Interpreter, name string) (*runtime.ModuleValue, error)
}

// ExecuteModule runs program as the body of module name in a fresh scope
// under the global environment. The module is registered as a root before
// its body runs. An exception escaping the body is returned as an
// *UncaughtError.
func (i *Interpreter) ExecuteModule(name, path string, program []ast.Statement) (*runtime.ModuleValue, error) {
	env := runtime.NewEnvironment(i.global)
	i.moduleEnvs[env] = true
	module := i.heap.NewModule(name, path, env)
	i.modules = append(i.modules, module)
	i.logger.Debug("executing module", slog.String("module", name), slog.String("path", path))

	_, err := i.executeBlock(ast.NewBlock(program), env)
	if err = i.topLevelError(err); err != nil {
		return nil, err
	}
	return module, nil
}

// inModule reports whether env is, or is nested inside, a module body.
func (i *Interpreter) inModule(env *runtime.Environment) bool {
	for e := env; e != nil && e != i.global; e = e.Parent() {
		if i.moduleEnvs[e] {
			return true
		}
	}
	return false
}

// Modules lists every module executed so far, in load order.
func (i *Interpreter) Modules() []*runtime.ModuleValue {
	return append([]*runtime.ModuleValue(nil), i.modules...)
}

func (i *Interpreter) evaluateImportStatement(stmt *ast.ImportStatement, env *runtime.Environment) (runtime.Value, error) {
	if i.loader == nil {
		return nil, i.raise("Module '%s' not found.", stmt.Module)
	}
	module, err := i.loader.LoadModule(i, stmt.Module)
	if err != nil {
		var uncaught *UncaughtError
		if errors.As(err, &uncaught) {
			return nil, raiseSignal{exception: uncaught.Exception}
		}
		return nil, i.raise("%s", err.Error())
	}

	switch {
	case stmt.All:
		for _, name := range module.Env.Keys() {
			val, _ := module.Env.LookupOwn(name)
			env.Define(name, val)
		}
	case len(stmt.Items) > 0:
		for _, item := range stmt.Items {
			val, ok := module.Env.LookupOwn(item.Name)
			if !ok {
				return nil, i.raise("Module '%s' has no attribute '%s'.", stmt.Module, item.Name)
			}
			binding := item.Name
			if item.Alias != "" {
				binding = item.Alias
			}
			env.Define(binding, val)
		}
	default:
		env.Define(stmt.Binding(), module)
	}
	return runtime.Nil, nil
}
