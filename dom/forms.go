package dom

import (
	"net/url"

	"golang.org/x/net/html/atom"
)

// Value returns the control's live value. Before any SetValue the parsed
// default applies: the value attribute for inputs, the text content for
// textareas, and the selected option for selects.
func (e *Element) Value() string {
	if e.value != nil {
		return *e.value
	}
	switch e.n.DataAtom {
	case atom.Textarea:
		return e.Text()
	case atom.Select:
		for _, opt := range e.selectOptions() {
			if opt.HasAttr("selected") {
				return optionValue(opt)
			}
		}
		if opts := e.selectOptions(); len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	default:
		return e.AttrOr("value", "")
	}
}

// SetValue sets the control's live value without touching the parsed
// default, so a form reset restores the original.
func (e *Element) SetValue(v string) {
	e.value = &v
}

// Checked returns the control's live checked state, defaulting to the
// presence of the checked attribute.
func (e *Element) Checked() bool {
	if e.checked != nil {
		return *e.checked
	}
	return e.HasAttr("checked")
}

// SetChecked sets the control's live checked state.
func (e *Element) SetChecked(on bool) {
	e.checked = &on
}

// Submit dispatches a cancelable submit event on the element's form,
// mirroring requestSubmit: listeners (such as the engine's commit
// interception) run first, and the return value reports whether the default
// action survived. Calling Submit on a non-form element targets its nearest
// enclosing form.
func (e *Element) Submit() bool {
	form := e.Form()
	if form == nil {
		return false
	}
	return form.Dispatch(NewEvent("submit"))
}

// Reset restores every control under the element's form to its parsed
// default by clearing the live overlays. Like the platform's form.reset(),
// no event is dispatched.
func (e *Element) Reset() {
	form := e.Form()
	if form == nil {
		return
	}
	for _, c := range form.controls() {
		c.value = nil
		c.checked = nil
	}
}

// FormValues serializes the form's controls the way a browser builds a form
// data set: named, non-disabled controls only; checkboxes and radios only
// when checked; the selected option(s) for selects.
func (e *Element) FormValues() url.Values {
	vals := url.Values{}
	form := e.Form()
	if form == nil {
		return vals
	}
	for _, c := range form.controls() {
		name, ok := c.Attr("name")
		if !ok || name == "" || c.HasAttr("disabled") {
			continue
		}
		switch c.n.DataAtom {
		case atom.Input:
			typ := c.AttrOr("type", "text")
			switch typ {
			case "checkbox", "radio":
				if c.Checked() {
					v := c.AttrOr("value", "on")
					if c.value != nil {
						v = *c.value
					}
					vals.Add(name, v)
				}
			case "submit", "button", "reset", "image", "file":
				// Buttons only participate via a submitter, which the
				// headless engine does not model. Files have no value.
			default:
				vals.Add(name, c.Value())
			}
		case atom.Textarea:
			vals.Add(name, c.Value())
		case atom.Select:
			if c.HasAttr("multiple") {
				for _, opt := range c.selectOptions() {
					if opt.HasAttr("selected") {
						vals.Add(name, optionValue(opt))
					}
				}
			} else {
				vals.Add(name, c.Value())
			}
		}
	}
	return vals
}

// controls returns the form's input, select and textarea descendants.
func (e *Element) controls() []*Element {
	out, err := e.QueryAll("input, select, textarea")
	if err != nil {
		return nil
	}
	return out
}

func (e *Element) selectOptions() []*Element {
	out, err := e.QueryAll("option")
	if err != nil {
		return nil
	}
	return out
}

// optionValue returns an option's submission value: the value attribute when
// present, else the option text.
func optionValue(opt *Element) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return opt.Text()
}
