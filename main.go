package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
)

type app struct {
	cfg   Config
	views *ViewRegistry
	store *visitStore
	auth  *adminAuth

	// background runs work off the request goroutine; wg tracks it so the
	// store outlives every pending write.
	background func(func())
	wg         sync.WaitGroup
}

func newApp(cfg Config, store *visitStore) *app {
	a := &app{
		cfg:   cfg,
		views: NewViewRegistry(cfg.MaxViews),
		store: store,
		auth:  newAdminAuth(cfg),
	}
	a.background = func(f func()) {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			f()
		}()
	}
	return a
}

type pageData struct {
	ViewID             string
	Greeting           string
	Intro              string
	University         Abbreviation
	IntroRest          string
	AboutMe            []string
	HeroImage          string
	HeroAlt            string
	ProjectsHeading    string
	ProjectsSubheading string
	Cards              []Card
	Socials            []SocialLink
	LinkTarget         string
	LinkRel            string
	Owner              string
	Copyright          string
	Overlay            overlayData
}

type overlayData struct {
	ViewID string
	State  PreviewState
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := loadConfig()

	store, err := openVisitStore(cfg.DBPath, cfg.HashSalt)
	if err != nil {
		return fmt.Errorf("failed to open visit store: %w", err)
	}
	defer store.Close()
	log.Println("Privacy: Visitor tracking enabled with hashed IP addresses")

	a := newApp(cfg, store)
	// Runs before store.Close so queued tracking writes finish first.
	defer a.wg.Wait()

	a.background(a.cleanupOldVisits)

	r, err := a.router()
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.views.sweep(ctx, time.Minute, cfg.ViewTTL)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Portfolio listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// In-flight handlers may still queue tracking writes until Shutdown
	// returns.
	<-drained
	return nil
}

func (a *app) router() (*gin.Engine, error) {
	r := gin.Default()

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Static("/static", a.cfg.StaticDir)

	// Project images are referenced relative to the page root.
	seen := make(map[string]bool)
	for _, p := range Projects() {
		name, ok := localAsset(p.Image)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		r.StaticFile("/"+name, filepath.Join(a.cfg.PublicDir, name))
	}

	r.Use(a.trackVisits())

	r.GET("/", a.index)

	views := r.Group("/views/:view")
	views.GET("/preview", a.showPreview)
	views.POST("/preview", a.openPreview)
	views.DELETE("/preview", a.closePreview)

	api := r.Group("/api")
	api.GET("/projects", listProjects)
	api.GET("/projects/:id", getProject)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a.setupAdminRoutes(r)

	return r, nil
}

// Home page route; every render gets its own view and closed preview.
func (a *app) index(c *gin.Context) {
	id, preview := a.views.Create()

	c.HTML(http.StatusOK, "index.html", pageData{
		ViewID:             id,
		Greeting:           Greeting,
		Intro:              Intro,
		University:         University,
		IntroRest:          IntroRest,
		AboutMe:            AboutMe,
		HeroImage:          HeroImage,
		HeroAlt:            HeroAlt,
		ProjectsHeading:    ProjectsHeading,
		ProjectsSubheading: ProjectsSubheading,
		Cards:              Cards(Projects()),
		Socials:            SocialLinks,
		LinkTarget:         linkTarget,
		LinkRel:            linkRel,
		Owner:              Owner,
		Copyright:          Copyright,
		Overlay:            overlayData{ViewID: id, State: preview.State()},
	})
}

// lookupPreview resolves the view in the URL. Unknown views get an empty
// 404 so HTMX leaves the page alone.
func (a *app) lookupPreview(c *gin.Context) (*Preview, bool) {
	p, ok := a.views.Get(c.Param("view"))
	if !ok {
		c.Status(http.StatusNotFound)
		return nil, false
	}
	return p, true
}

func (a *app) renderOverlay(c *gin.Context, p *Preview) {
	c.HTML(http.StatusOK, "preview.html", overlayData{
		ViewID: c.Param("view"),
		State:  p.State(),
	})
}

func (a *app) showPreview(c *gin.Context) {
	p, ok := a.lookupPreview(c)
	if !ok {
		return
	}
	a.renderOverlay(c, p)
}

// HTMX thumbnail click
func (a *app) openPreview(c *gin.Context) {
	p, ok := a.lookupPreview(c)
	if !ok {
		return
	}

	image := c.PostForm("image")
	p.Open(image)

	// Only the site's own thumbnails are counted; the form value is
	// client-supplied.
	if _, known := projectByImage(image); known && c.GetHeader("DNT") != "1" {
		ip, now := c.ClientIP(), time.Now()
		a.background(func() {
			if err := a.store.RecordPreview(ip, image, now); err != nil {
				log.Printf("Error recording preview: %v", err)
			}
		})
	}

	a.renderOverlay(c, p)
}

// HTMX backdrop or close button click
func (a *app) closePreview(c *gin.Context) {
	p, ok := a.lookupPreview(c)
	if !ok {
		return
	}
	p.Close()
	a.renderOverlay(c, p)
}

func listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, Projects())
}

func getProject(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	project, ok := ProjectByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}
