package surf

// ModuleFunc is one callable method of a registered module. Arguments come
// from the statement's argument grammar: booleans, numbers, strings, state
// values, the triggering *dom.Element ("this") and *dom.Event ("event").
// The return value feeds back into the enclosing expression; return
// Undefined when there is nothing meaningful to report.
type ModuleFunc func(args ...any) any

// Module is a named collection of methods callable from expressions and
// statements as Name.method(args). Register one with
// Engine.RegisterModule:
//
//	eng.RegisterModule("Format", surf.Module{
//	    "upper": func(args ...any) any {
//	        if len(args) == 0 {
//	            return surf.Undefined
//	        }
//	        return strings.ToUpper(fmt.Sprint(args[0]))
//	    },
//	})
//
// Calling an unregistered module or an absent method is a warned no-op
// evaluating to Undefined.
type Module map[string]ModuleFunc

// RegisterModule makes m callable from expressions under the given name.
// Registering the same name again replaces the previous module.
func (e *Engine) RegisterModule(name string, m Module) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.modules[name]; exists {
		e.log.Debug("surf: module replaced", "module", name)
	}
	e.modules[name] = m
}
