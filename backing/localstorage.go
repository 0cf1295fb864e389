//go:build js && wasm
// +build js,wasm

package backing

import (
	"fmt"
	"strings"
	"syscall/js"
)

// LocalStorage stores data in the browser's window.localStorage.
type LocalStorage struct {
	storage   js.Value
	namespace string
}

// NewLocalStorage creates a new backing over window.localStorage. Keys are prefixed with
// namespace + "/" when a namespace is given.
func NewLocalStorage(namespace string) (*LocalStorage, error) {
	storage := js.Global().Get("localStorage")
	if storage.IsUndefined() || storage.IsNull() {
		return nil, fmt.Errorf("localStorage is not available")
	}
	return &LocalStorage{storage: storage, namespace: namespace}, nil
}

func (l *LocalStorage) ns(key Key) Key {
	if l.namespace == "" {
		return key
	}
	return l.namespace + "/" + key
}

// List lists all keys in the store with the given prefix, in the browser's enumeration order.
func (l *LocalStorage) List(prefix string) (keys []Key, err error) {
	defer recoverJS(&err)
	full := l.ns(prefix)
	strip := l.ns("")
	keys = []Key{}
	n := l.storage.Get("length").Int()
	for i := 0; i < n; i++ {
		k := l.storage.Call("key", i)
		if k.IsNull() {
			continue
		}
		if s := k.String(); strings.HasPrefix(s, full) {
			keys = append(keys, strings.TrimPrefix(s, strip))
		}
	}
	return keys, nil
}

// Get returns the value for the given key and whether the key exists.
func (l *LocalStorage) Get(key Key) (value string, found bool, err error) {
	defer recoverJS(&err)
	v := l.storage.Call("getItem", l.ns(key))
	if v.IsNull() {
		return "", false, nil
	}
	return v.String(), true, nil
}

// Set sets the value for the given key.
func (l *LocalStorage) Set(key Key, value string) (err error) {
	defer recoverJS(&err)
	l.storage.Call("setItem", l.ns(key), value)
	return nil
}

// Del deletes the key-value pair for the given key.
func (l *LocalStorage) Del(key Key) (err error) {
	defer recoverJS(&err)
	l.storage.Call("removeItem", l.ns(key))
	return nil
}

// recoverJS turns a thrown JavaScript exception (e.g. QuotaExceededError) into an error.
func recoverJS(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(js.Error); ok {
		*err = jsErr
		return
	}
	panic(r)
}
