package transfer

// Observer receives the semantic events of a Controller. Callbacks run on the
// goroutine that caused the event, after the Controller released its lock, so
// they may query the Controller but should return quickly.
type Observer interface {
	StatusChanged(text string)
	ControlsEnabledChanged(enabled bool)
	ProgressChanged(read, total int64)
	// TransferFinished fires only when the download succeeded.
	TransferFinished(s Snapshot)
	// TransferFailed fires when a started download ends failed or cancelled.
	TransferFailed(s Snapshot, err error)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) StatusChanged(string)           {}
func (NopObserver) ControlsEnabledChanged(bool)    {}
func (NopObserver) ProgressChanged(int64, int64)   {}
func (NopObserver) TransferFinished(Snapshot)      {}
func (NopObserver) TransferFailed(Snapshot, error) {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) StatusChanged(text string) {
	for _, obs := range o {
		obs.StatusChanged(text)
	}
}

func (o Observers) ControlsEnabledChanged(enabled bool) {
	for _, obs := range o {
		obs.ControlsEnabledChanged(enabled)
	}
}

func (o Observers) ProgressChanged(read, total int64) {
	for _, obs := range o {
		obs.ProgressChanged(read, total)
	}
}

func (o Observers) TransferFinished(s Snapshot) {
	for _, obs := range o {
		obs.TransferFinished(s)
	}
}

func (o Observers) TransferFailed(s Snapshot, err error) {
	for _, obs := range o {
		obs.TransferFailed(s, err)
	}
}

// events collects notifications while the Controller holds its lock; they are
// delivered by flush once it is released.
type events []func(Observer)

func (e *events) status(text string) {
	*e = append(*e, func(o Observer) { o.StatusChanged(text) })
}

func (e *events) controls(enabled bool) {
	*e = append(*e, func(o Observer) { o.ControlsEnabledChanged(enabled) })
}

func (e *events) progress(read, total int64) {
	*e = append(*e, func(o Observer) { o.ProgressChanged(read, total) })
}

func (e *events) finished(s Snapshot) {
	*e = append(*e, func(o Observer) { o.TransferFinished(s) })
}

func (e *events) failed(s Snapshot, err error) {
	*e = append(*e, func(o Observer) { o.TransferFailed(s, err) })
}

func (e events) flush(o Observer) {
	for _, fn := range e {
		fn(o)
	}
}
