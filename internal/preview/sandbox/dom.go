package sandbox

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event targets for recorded listeners.
const (
	targetWindow   = "window"
	targetDocument = "document"
	targetElement  = "element"
)

type listener struct {
	target string
	event  string
	fn     goja.Value
}

// DOM exposes a parsed document to a goja runtime. Wrappers are cached per
// node so the same node always yields the same JS object.
type DOM struct {
	vm      *goja.Runtime
	doc     *goquery.Document
	objects map[*html.Node]*goja.Object
	nodes   map[*goja.Object]*html.Node
	styles  map[*html.Node]*goja.Object

	listeners []listener
}

func newDOM(vm *goja.Runtime, doc *goquery.Document) *DOM {
	return &DOM{
		vm:      vm,
		doc:     doc,
		objects: make(map[*html.Node]*goja.Object),
		nodes:   make(map[*goja.Object]*html.Node),
		styles:  make(map[*html.Node]*goja.Object),
	}
}

// BodyHTML renders the current body children.
func (d *DOM) BodyHTML() string {
	out, err := d.doc.Find("body").Html()
	if err != nil {
		return ""
	}
	return out
}

// Listeners returns the number of registered event listeners.
func (d *DOM) Listeners() int {
	return len(d.listeners)
}

func (d *DOM) fn(f func(goja.FunctionCall) goja.Value) goja.Value {
	return d.vm.ToValue(f)
}

func (d *DOM) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := d.fn(func(goja.FunctionCall) goja.Value { return get() })
	var setter goja.Value
	if set != nil {
		setter = d.fn(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	_ = obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_FALSE)
}

func (d *DOM) throw(name, message string) {
	err := d.vm.NewGoError(errors.New(message))
	_ = err.Set("name", name)
	panic(err)
}

// document builds the global document object.
func (d *DOM) document() *goja.Object {
	doc := d.vm.NewObject()
	root := d.doc.Nodes[0]

	d.accessor(doc, "body", func() goja.Value { return d.wrapFirst("body") }, nil)
	d.accessor(doc, "head", func() goja.Value { return d.wrapFirst("head") }, nil)
	d.accessor(doc, "documentElement", func() goja.Value { return d.wrapFirst("html") }, nil)
	d.accessor(doc, "title", func() goja.Value {
		return d.vm.ToValue(strings.TrimSpace(d.doc.Find("title").First().Text()))
	}, nil)
	_ = doc.Set("readyState", "loading")
	_ = doc.Set("nodeType", 9)

	_ = doc.Set("querySelector", d.fn(func(call goja.FunctionCall) goja.Value {
		return d.querySelector(root, call.Argument(0).String())
	}))
	_ = doc.Set("querySelectorAll", d.fn(func(call goja.FunctionCall) goja.Value {
		return d.querySelectorAll(root, call.Argument(0).String())
	}))
	_ = doc.Set("getElementById", d.fn(func(call goja.FunctionCall) goja.Value {
		want := call.Argument(0).String()
		var found *html.Node
		walk(root, func(n *html.Node) bool {
			if v, ok := attr(n, "id"); ok && v == want {
				found = n
				return false
			}
			return true
		})
		return d.wrap(found)
	}))
	_ = doc.Set("getElementsByClassName", d.fn(func(call goja.FunctionCall) goja.Value {
		want := strings.Fields(call.Argument(0).String())
		return d.collect(root, func(n *html.Node) bool { return hasClasses(n, want) })
	}))
	_ = doc.Set("getElementsByTagName", d.fn(func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return d.collect(root, func(n *html.Node) bool { return tag == "*" || n.Data == tag })
	}))
	_ = doc.Set("createElement", d.fn(func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(strings.TrimSpace(call.Argument(0).String()))
		if tag == "" {
			d.throw("InvalidCharacterError", "createElement: the tag name provided is not a valid name")
		}
		return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
	}))
	_ = doc.Set("createTextNode", d.fn(func(call goja.FunctionCall) goja.Value {
		return d.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	}))
	_ = doc.Set("addEventListener", d.addListener(targetDocument))
	_ = doc.Set("removeEventListener", d.removeListener(targetDocument))
	return doc
}

func (d *DOM) wrapFirst(tag string) goja.Value {
	sel := d.doc.Find(tag).First()
	if sel.Length() == 0 {
		return goja.Null()
	}
	return d.wrap(sel.Nodes[0])
}

func (d *DOM) querySelector(n *html.Node, selector string) goja.Value {
	sel := goquery.NewDocumentFromNode(n).Find(selector).First()
	if sel.Length() == 0 {
		return goja.Null()
	}
	return d.wrap(sel.Nodes[0])
}

func (d *DOM) querySelectorAll(n *html.Node, selector string) goja.Value {
	sel := goquery.NewDocumentFromNode(n).Find(selector)
	items := make([]interface{}, 0, sel.Length())
	for _, node := range sel.Nodes {
		items = append(items, d.wrap(node))
	}
	return d.vm.NewArray(items...)
}

func (d *DOM) collect(root *html.Node, match func(*html.Node) bool) goja.Value {
	var items []interface{}
	walk(root, func(n *html.Node) bool {
		if n != root && n.Type == html.ElementNode && match(n) {
			items = append(items, d.wrap(n))
		}
		return true
	})
	return d.vm.NewArray(items...)
}

// wrap returns the cached JS object for n, creating it on first use.
func (d *DOM) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if obj, ok := d.objects[n]; ok {
		return obj
	}
	var obj *goja.Object
	switch n.Type {
	case html.ElementNode:
		obj = d.element(n)
	default:
		obj = d.textNode(n)
	}
	d.objects[n] = obj
	d.nodes[obj] = n
	return obj
}

func (d *DOM) unwrap(v goja.Value) *html.Node {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return d.nodes[obj]
}

func (d *DOM) textNode(n *html.Node) *goja.Object {
	obj := d.vm.NewObject()
	_ = obj.Set("nodeType", 3)
	_ = obj.Set("nodeName", "#text")
	d.accessor(obj, "textContent",
		func() goja.Value { return d.vm.ToValue(n.Data) },
		func(v goja.Value) { n.Data = v.String() })
	d.accessor(obj, "parentNode", func() goja.Value { return d.wrap(n.Parent) }, nil)
	_ = obj.Set("remove", d.fn(func(goja.FunctionCall) goja.Value {
		detach(n)
		return goja.Undefined()
	}))
	return obj
}

func (d *DOM) element(n *html.Node) *goja.Object {
	obj := d.vm.NewObject()
	_ = obj.Set("nodeType", 1)

	tagName := func() goja.Value { return d.vm.ToValue(strings.ToUpper(n.Data)) }
	d.accessor(obj, "tagName", tagName, nil)
	d.accessor(obj, "nodeName", tagName, nil)
	d.accessor(obj, "id",
		func() goja.Value { return d.vm.ToValue(attrOr(n, "id")) },
		func(v goja.Value) { setAttr(n, "id", v.String()) })
	d.accessor(obj, "className",
		func() goja.Value { return d.vm.ToValue(attrOr(n, "class")) },
		func(v goja.Value) { setAttr(n, "class", v.String()) })
	d.accessor(obj, "value",
		func() goja.Value { return d.vm.ToValue(attrOr(n, "value")) },
		func(v goja.Value) { setAttr(n, "value", v.String()) })

	text := func() goja.Value { return d.vm.ToValue(goquery.NewDocumentFromNode(n).Text()) }
	setText := func(v goja.Value) {
		clearChildren(n)
		if s := v.String(); s != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
		}
	}
	d.accessor(obj, "textContent", text, setText)
	d.accessor(obj, "innerText", text, setText)
	d.accessor(obj, "innerHTML",
		func() goja.Value { return d.vm.ToValue(renderChildren(n)) },
		func(v goja.Value) { setInnerHTML(n, v.String()) })
	d.accessor(obj, "outerHTML", func() goja.Value {
		var b strings.Builder
		_ = html.Render(&b, n)
		return d.vm.ToValue(b.String())
	}, nil)
	d.accessor(obj, "parentNode", func() goja.Value { return d.wrap(n.Parent) }, nil)
	d.accessor(obj, "parentElement", func() goja.Value {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return goja.Null()
		}
		return d.wrap(n.Parent)
	}, nil)
	d.accessor(obj, "children", func() goja.Value {
		var items []interface{}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				items = append(items, d.wrap(c))
			}
		}
		return d.vm.NewArray(items...)
	}, nil)
	d.accessor(obj, "style", func() goja.Value { return d.style(n) }, nil)
	_ = obj.Set("classList", d.classList(n))

	_ = obj.Set("getAttribute", d.fn(func(call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, strings.ToLower(call.Argument(0).String())); ok {
			return d.vm.ToValue(v)
		}
		return goja.Null()
	}))
	_ = obj.Set("setAttribute", d.fn(func(call goja.FunctionCall) goja.Value {
		setAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	}))
	_ = obj.Set("removeAttribute", d.fn(func(call goja.FunctionCall) goja.Value {
		removeAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	}))
	_ = obj.Set("hasAttribute", d.fn(func(call goja.FunctionCall) goja.Value {
		_, ok := attr(n, strings.ToLower(call.Argument(0).String()))
		return d.vm.ToValue(ok)
	}))
	_ = obj.Set("appendChild", d.fn(func(call goja.FunctionCall) goja.Value {
		d.appendChild(n, call.Argument(0))
		return call.Argument(0)
	}))
	_ = obj.Set("append", d.fn(func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			if d.unwrap(arg) == nil {
				n.AppendChild(&html.Node{Type: html.TextNode, Data: arg.String()})
				continue
			}
			d.appendChild(n, arg)
		}
		return goja.Undefined()
	}))
	_ = obj.Set("removeChild", d.fn(func(call goja.FunctionCall) goja.Value {
		child := d.unwrap(call.Argument(0))
		if child == nil || child.Parent != n {
			d.throw("NotFoundError", "removeChild: the node to be removed is not a child of this node")
		}
		n.RemoveChild(child)
		return call.Argument(0)
	}))
	_ = obj.Set("remove", d.fn(func(goja.FunctionCall) goja.Value {
		detach(n)
		return goja.Undefined()
	}))
	_ = obj.Set("querySelector", d.fn(func(call goja.FunctionCall) goja.Value {
		return d.querySelector(n, call.Argument(0).String())
	}))
	_ = obj.Set("querySelectorAll", d.fn(func(call goja.FunctionCall) goja.Value {
		return d.querySelectorAll(n, call.Argument(0).String())
	}))
	_ = obj.Set("addEventListener", d.addListener(targetElement))
	_ = obj.Set("removeEventListener", d.removeListener(targetElement))
	return obj
}

func (d *DOM) appendChild(parent *html.Node, v goja.Value) {
	child := d.unwrap(v)
	if child == nil {
		panic(d.vm.NewTypeError("appendChild: parameter 1 is not of type 'Node'"))
	}
	for p := parent; p != nil; p = p.Parent {
		if p == child {
			d.throw("HierarchyRequestError", "appendChild: the new child is an ancestor of the parent")
		}
	}
	detach(child)
	parent.AppendChild(child)
}

// style returns the element's style object. Assignments are kept on the
// object only; layout is never computed.
func (d *DOM) style(n *html.Node) *goja.Object {
	if s, ok := d.styles[n]; ok {
		return s
	}
	s := d.vm.NewObject()
	_ = s.Set("setProperty", d.fn(func(call goja.FunctionCall) goja.Value {
		_ = s.Set(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	}))
	_ = s.Set("getPropertyValue", d.fn(func(call goja.FunctionCall) goja.Value {
		v := s.Get(call.Argument(0).String())
		if v == nil || goja.IsUndefined(v) {
			return d.vm.ToValue("")
		}
		return v
	}))
	d.styles[n] = s
	return s
}

func (d *DOM) classList(n *html.Node) *goja.Object {
	list := d.vm.NewObject()
	_ = list.Set("add", d.fn(func(call goja.FunctionCall) goja.Value {
		classes := strings.Fields(attrOr(n, "class"))
		for _, arg := range call.Arguments {
			if name := arg.String(); !contains(classes, name) {
				classes = append(classes, name)
			}
		}
		setAttr(n, "class", strings.Join(classes, " "))
		return goja.Undefined()
	}))
	_ = list.Set("remove", d.fn(func(call goja.FunctionCall) goja.Value {
		var drop []string
		for _, arg := range call.Arguments {
			drop = append(drop, arg.String())
		}
		var kept []string
		for _, c := range strings.Fields(attrOr(n, "class")) {
			if !contains(drop, c) {
				kept = append(kept, c)
			}
		}
		setAttr(n, "class", strings.Join(kept, " "))
		return goja.Undefined()
	}))
	_ = list.Set("contains", d.fn(func(call goja.FunctionCall) goja.Value {
		return d.vm.ToValue(contains(strings.Fields(attrOr(n, "class")), call.Argument(0).String()))
	}))
	_ = list.Set("toggle", d.fn(func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		classes := strings.Fields(attrOr(n, "class"))
		if contains(classes, name) {
			var kept []string
			for _, c := range classes {
				if c != name {
					kept = append(kept, c)
				}
			}
			setAttr(n, "class", strings.Join(kept, " "))
			return d.vm.ToValue(false)
		}
		setAttr(n, "class", strings.Join(append(classes, name), " "))
		return d.vm.ToValue(true)
	}))
	return list
}

func (d *DOM) addListener(target string) goja.Value {
	return d.fn(func(call goja.FunctionCall) goja.Value {
		fn := call.Argument(1)
		if _, ok := goja.AssertFunction(fn); !ok {
			return goja.Undefined()
		}
		d.listeners = append(d.listeners, listener{target: target, event: call.Argument(0).String(), fn: fn})
		return goja.Undefined()
	})
}

func (d *DOM) removeListener(target string) goja.Value {
	return d.fn(func(call goja.FunctionCall) goja.Value {
		event, fn := call.Argument(0).String(), call.Argument(1)
		for i, l := range d.listeners {
			if l.target == target && l.event == event && l.fn.SameAs(fn) {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				break
			}
		}
		return goja.Undefined()
	})
}

// handlers returns the listeners registered on target for event.
func (d *DOM) handlers(target, event string) []goja.Callable {
	var out []goja.Callable
	for _, l := range d.listeners {
		if l.target != target || l.event != event {
			continue
		}
		if fn, ok := goja.AssertFunction(l.fn); ok {
			out = append(out, fn)
		}
	}
	return out
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func setInnerHTML(n *html.Node, markup string) {
	clearChildren(n)
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: markup})
		return
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func hasClasses(n *html.Node, want []string) bool {
	if len(want) == 0 {
		return false
	}
	have := strings.Fields(attrOr(n, "class"))
	for _, w := range want {
		if !contains(have, w) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
