package storage

// Overlay buffers writes and deletes on top of a parent database until Commit
// flushes them. Discarding an overlay is simply dropping it. Overlays nest:
// committing an inner overlay flushes into the outer one.
type Overlay struct {
	parent  Database
	writes  map[string][]byte
	deletes map[string]struct{}
	order   []string
}

// NewOverlay wraps the parent database in a fresh write buffer.
func NewOverlay(parent Database) *Overlay {
	return &Overlay{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) touch(key string) {
	if _, written := o.writes[key]; written {
		return
	}
	if _, deleted := o.deletes[key]; deleted {
		return
	}
	o.order = append(o.order, key)
}

func (o *Overlay) Put(key []byte, value []byte) error {
	k := string(key)
	o.touch(k)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, deleted := o.deletes[k]; deleted {
		return nil, nil
	}
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.parent.Get(key)
}

func (o *Overlay) Delete(key []byte) error {
	k := string(key)
	o.touch(k)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

func (o *Overlay) Has(key []byte) (bool, error) {
	k := string(key)
	if _, deleted := o.deletes[k]; deleted {
		return false, nil
	}
	if _, ok := o.writes[k]; ok {
		return true, nil
	}
	return o.parent.Has(key)
}

// Close discards the buffered changes without touching the parent.
func (o *Overlay) Close() error { return nil }

// Commit flushes buffered operations into the parent in the order they were
// first applied.
func (o *Overlay) Commit() error {
	for _, k := range o.order {
		key := []byte(k)
		if _, deleted := o.deletes[k]; deleted {
			if err := o.parent.Delete(key); err != nil {
				return err
			}
			continue
		}
		if value, ok := o.writes[k]; ok {
			if err := o.parent.Put(key, value); err != nil {
				return err
			}
		}
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
	o.order = nil
	return nil
}
