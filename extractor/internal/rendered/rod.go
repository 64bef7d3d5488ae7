package rendered

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodLauncher starts a local headless Chrome for each Launch call.
type RodLauncher struct {
	// Bin is the Chrome binary. Empty lets the launcher find or download one.
	Bin string
	// NoStealth opens plain pages instead of stealth-patched ones.
	NoStealth bool
	// BlockResources lists resource types never fetched:
	// images, fonts, media, stylesheets.
	BlockResources []string
	// IdleWindow is how long the network must stay quiet. Default: 500ms.
	IdleWindow time.Duration
	Logger     *slog.Logger
}

// Launch implements Launcher.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-blink-features", "AutomationControlled")
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}

	u, err := ln.Launch()
	if err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("launch: %w", err)
	}
	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("connect: %w", err)
	}

	idle := l.IdleWindow
	if idle <= 0 {
		idle = 500 * time.Millisecond
	}
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	return &rodBrowser{b: b, ln: ln, stealth: !l.NoStealth, block: l.BlockResources, idle: idle, log: log}, nil
}

type rodBrowser struct {
	b       *rod.Browser
	ln      *launcher.Launcher
	stealth bool
	block   []string
	idle    time.Duration
	log     *slog.Logger
}

func (r *rodBrowser) NewPage(ctx context.Context, userAgent string) (Page, error) {
	b := r.b.Context(ctx)

	var page *rod.Page
	var err error
	if r.stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if len(r.block) > 0 {
		blockResources(page, r.block)
	}
	return &rodPage{p: page, idle: r.idle}, nil
}

// Close shuts Chrome down and removes its profile directory. The process is
// killed even when the CDP close call fails.
func (r *rodBrowser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.b.Context(ctx).Close()
	r.ln.Kill()
	r.ln.Cleanup()
	return err
}

// blockResources fails requests for the listed resource types.
func blockResources(page *rod.Page, types []string) {
	blocked := make(map[proto.NetworkResourceType]bool, len(types))
	for _, t := range types {
		switch strings.ToLower(t) {
		case "images", "image":
			blocked[proto.NetworkResourceTypeImage] = true
		case "fonts", "font":
			blocked[proto.NetworkResourceTypeFont] = true
		case "media":
			blocked[proto.NetworkResourceTypeMedia] = true
		case "stylesheets", "stylesheet":
			blocked[proto.NetworkResourceTypeStylesheet] = true
		}
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}

type rodPage struct {
	p    *rod.Page
	idle time.Duration
}

var errNavTimeout = errors.New("navigation timeout")

func (r *rodPage) Navigate(ctx context.Context, url string) error {
	p := r.p.Context(ctx)
	wait := p.WaitRequestIdle(r.idle, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errNavTimeout, ctx.Err())
	}
	return nil
}

func (r *rodPage) WaitElement(ctx context.Context, selector string) error {
	_, err := r.p.Context(ctx).Element(selector)
	return err
}

func (r *rodPage) URL() string {
	info, err := r.p.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

const removeJS = `(sels) => {
	for (const s of sels) {
		try { document.querySelectorAll(s).forEach((el) => el.remove()); } catch (e) {}
	}
}`

func (r *rodPage) Remove(ctx context.Context, selectors []string) error {
	_, err := r.p.Context(ctx).Eval(removeJS, selectors)
	return err
}

const textJS = `(sel) => {
	let el = null;
	try { el = document.querySelector(sel); } catch (e) { return null; }
	if (!el) return null;
	return el.innerText || el.textContent || "";
}`

func (r *rodPage) Text(ctx context.Context, selector string) (string, bool, error) {
	res, err := r.p.Context(ctx).Eval(textJS, selector)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}
