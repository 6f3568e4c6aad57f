package eventloop

import (
	"bytes"
	"context"
	"errors"
	"log"

	"screen-snip/src/config"
	"screen-snip/src/hotkey"
	"screen-snip/src/notification"
	"screen-snip/src/overlay"
	"screen-snip/src/publish"
	"screen-snip/src/render"
	"screen-snip/src/session"
	"screen-snip/src/singleinstance"
)

// Loop is the single-threaded coordinator for hotkey, tray and run-once
// flows. At most one overlay is shown at a time.
type Loop struct {
	selector overlay.Selector
	srv      singleinstance.Server
	notifier notification.Notifier
	pen      render.Pen

	triggerCh chan struct{}
	penCh     chan render.Pen
}

type Options struct {
	Selector overlay.Selector
	// Server accepts run-once delegations; nil disables them.
	Server   singleinstance.Server
	Notifier notification.Notifier
	Pen      render.Pen
}

func New(opts Options) *Loop {
	return &Loop{
		selector:  opts.Selector,
		srv:       opts.Server,
		notifier:  opts.Notifier,
		pen:       opts.Pen,
		triggerCh: make(chan struct{}, 4),
		penCh:     make(chan render.Pen, 1),
	}
}

// Trigger asks for a selection. Safe from any goroutine; presses beyond the
// queue capacity are dropped.
func (l *Loop) Trigger() {
	select {
	case l.triggerCh <- struct{}{}:
	default:
	}
}

// SetPen replaces the pen for sessions started after the loop picks it up.
// A session already on screen keeps its pen.
func (l *Loop) SetPen(p render.Pen) {
	for {
		select {
		case l.penCh <- p:
			return
		default:
		}
		// Drop a pending pen nobody has applied yet; the newest wins.
		select {
		case <-l.penCh:
		default:
		}
	}
}

// StartHotkey registers a global hotkey that triggers a selection.
func (l *Loop) StartHotkey(ctx context.Context, combo string) error {
	if combo == "" {
		return nil
	}
	return hotkey.Listen(ctx, combo, l.Trigger)
}

// WatchConfig applies pen changes from the .env file at path until ctx is done.
func (l *Loop) WatchConfig(ctx context.Context, path string, opts config.LoadOptions) {
	if path == "" {
		return
	}
	go func() {
		err := config.Watch(ctx, path, opts, func(cfg *config.Config) {
			l.SetPen(render.Pen{Color: cfg.PenColor, Width: cfg.PenWidth})
		})
		if err != nil {
			log.Printf("config watch stopped: %v", err)
		}
	}()
}

// Run processes triggers and run-once requests until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.selector == nil {
		return errors.New("eventloop: no selector")
	}

	var reqCh chan singleinstance.Conn
	if l.srv != nil {
		if err := l.srv.Start(ctx); err != nil {
			return err
		}
		if p := l.srv.Port(); p > 0 {
			log.Printf("Resident listening on 127.0.0.1:%d", p)
		}
		// Accept loop in background so a slow client never blocks the loop.
		reqCh = make(chan singleinstance.Conn, 4)
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.srv.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					conn.Close()
					return
				}
			}
		}()
		// Requests accepted but never handled are closed so their clients
		// see EOF instead of hanging.
		defer func() {
			go func() {
				for conn := range reqCh {
					conn.Close()
				}
			}()
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-l.penCh:
			log.Printf("Pen updated: %+v", p)
			l.pen = p
		case <-l.triggerCh:
			l.handleTrigger(ctx)
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context) {
	log.Printf("handleTrigger: called")
	res, err := l.selector.Select(ctx, overlay.Request{Pen: l.pen})
	// Presses made while the overlay was up were aimed at it, not at a
	// new session.
	l.drainTriggers()
	switch {
	case errors.Is(err, session.ErrSelectionCancelled):
		log.Printf("handleTrigger: selection cancelled")
	case err != nil:
		log.Printf("handleTrigger: %v", err)
		notification.ReportError(l.notifier, err)
	default:
		log.Printf("handleTrigger: copied %v", res.Rect)
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()

	req := overlay.Request{Pen: l.pen}
	var payload bytes.Buffer
	if conn.Request().WantPNG {
		req.Sink = publish.PNGSink{W: &payload}
	}

	res, err := l.selector.Select(ctx, req)
	l.drainTriggers()
	if err != nil {
		log.Printf("handleConn: %v", err)
		_ = conn.RespondError(err.Error())
		return
	}
	log.Printf("handleConn: delivered %v", res.Rect)
	if err := conn.RespondSuccess(payload.Bytes()); err != nil {
		log.Printf("handleConn: respond: %v", err)
	}
}

func (l *Loop) drainTriggers() {
	for {
		select {
		case <-l.triggerCh:
		default:
			return
		}
	}
}
