package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativecloner/cloner/internal/poll"
	"github.com/creativecloner/cloner/internal/providers"
	"github.com/creativecloner/cloner/internal/store"
)

// VideoOptions tunes a scene-video generation batch.
type VideoOptions struct {
	AspectRatio     string
	Frames          string
	RemoveWatermark bool
	SkipDownload    bool
	OutputDir       string
}

// VideoOp animates each scene's start image into a clip. Scenes qualify
// once they have an image and a video prompt but no video attachment.
type VideoOp struct {
	Kie     *providers.KieClient
	Store   SceneUpdater
	Model   providers.ModelSpec
	Options VideoOptions
	Logger  *slog.Logger

	// Downloader fetches finished clips. Defaults to http.DefaultClient.
	Downloader *http.Client
}

func (o *VideoOp) Name() string      { return "video" }
func (o *VideoOp) UnitCost() float64 { return o.Model.CostUSD }

func (o *VideoOp) Eligible(r *store.Record) bool {
	return r.EligibleForVideo() && r.Fields.VideoPrompt != ""
}

func (o *VideoOp) Plan(r *store.Record) string {
	plan := fmt.Sprintf("animate start image with %s (%ss)", o.Model.Name, o.Options.Frames)
	if !o.Options.SkipDownload {
		plan += ", download to " + o.Options.OutputDir
	}
	return plan
}

func (o *VideoOp) Prepare(ctx context.Context) error { return nil }

func (o *VideoOp) Execute(ctx context.Context, r *store.Record) (string, error) {
	task, err := providers.NewVideoTask(
		o.Model,
		r.Fields.VideoPrompt,
		r.ImageURL(),
		o.Options.AspectRatio,
		o.Options.Frames,
		o.Options.RemoveWatermark,
	)
	if err != nil {
		return "", err
	}

	taskID, err := o.Kie.CreateTask(ctx, task)
	if err != nil {
		return "", err
	}

	urls, err := o.Kie.Await(ctx, taskID, poll.VideoPolicy())
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

// Commit attaches the hosted clip to the record, then optionally saves a
// local copy. A failed download does not fail the scene; the clip is
// already attached and can be re-fetched.
func (o *VideoOp) Commit(ctx context.Context, r *store.Record, resultURL string) error {
	num, _ := r.SceneNumber()
	filename := clipFilename(num, r.Fields.Scene)

	if err := o.Store.AttachVideo(ctx, r.ID, resultURL, filename); err != nil {
		return err
	}

	if !o.Options.SkipDownload {
		dest := filepath.Join(o.Options.OutputDir, filename)
		if err := o.download(ctx, resultURL, dest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.Logger.Warn("clip download failed", "scene", r.Fields.Scene, "err", err)
		} else {
			o.Logger.Info("clip saved", "path", dest)
		}
	}
	return nil
}

func (o *VideoOp) Delay() time.Duration { return 5 * time.Second }

func (o *VideoOp) download(ctx context.Context, url, dest string) error {
	client := o.Downloader
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed (status %d)", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return f.Sync()
}

// clipFilename builds a local filename like scene_3_Rooftop_chase.mp4,
// with the label portion capped for readability.
func clipFilename(num int, label string) string {
	label = strings.ReplaceAll(strings.TrimSpace(label), " ", "_")
	if len(label) > 30 {
		label = label[:30]
	}
	if label == "" {
		return fmt.Sprintf("scene_%d.mp4", num)
	}
	return fmt.Sprintf("scene_%d_%s.mp4", num, label)
}
