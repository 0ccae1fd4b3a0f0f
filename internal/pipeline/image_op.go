package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creativecloner/cloner/internal/poll"
	"github.com/creativecloner/cloner/internal/providers"
	"github.com/creativecloner/cloner/internal/store"
)

// SceneUpdater persists generated artifacts back onto scene records.
type SceneUpdater interface {
	AttachImage(ctx context.Context, recordID, imageURL, filename string) error
	AttachVideo(ctx context.Context, recordID, videoURL, filename string) error
}

// ImageOptions tunes a start-image generation batch.
type ImageOptions struct {
	AspectRatio    string
	Resolution     string
	ReferenceImage string
}

// ImageOp generates the start image for each scene that has an image
// prompt but no image yet.
type ImageOp struct {
	Kie     *providers.KieClient
	Store   SceneUpdater
	Model   providers.ModelSpec
	Options ImageOptions
	Logger  *slog.Logger

	referenceURL string
}

func (o *ImageOp) Name() string      { return "image" }
func (o *ImageOp) UnitCost() float64 { return o.Model.CostUSD }

// Eligible requires a prompt and no existing image, so reruns only pick
// up scenes that still need one.
func (o *ImageOp) Eligible(r *store.Record) bool {
	return r.Fields.StartImagePrompt != "" && !r.HasImage()
}

func (o *ImageOp) Plan(r *store.Record) string {
	plan := fmt.Sprintf("generate start image with %s", o.Model.Name)
	if o.Options.ReferenceImage != "" && o.Model.SupportsImageInput {
		plan += " using reference image"
	}
	return plan
}

// Prepare uploads the reference image once for the whole batch. Upload
// failure downgrades to generating without a reference rather than
// aborting the batch.
func (o *ImageOp) Prepare(ctx context.Context) error {
	if o.Options.ReferenceImage == "" {
		return nil
	}
	if !o.Model.SupportsImageInput {
		o.Logger.Warn("model does not support reference images, ignoring",
			"model", o.Model.Name, "reference", o.Options.ReferenceImage)
		return nil
	}

	url, err := o.Kie.UploadFile(ctx, o.Options.ReferenceImage)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.Logger.Warn("reference image upload failed, continuing without it", "err", err)
		return nil
	}
	o.referenceURL = url
	return nil
}

func (o *ImageOp) Execute(ctx context.Context, r *store.Record) (string, error) {
	task := providers.NewImageTask(
		o.Model,
		r.Fields.StartImagePrompt,
		o.referenceURL,
		o.Options.AspectRatio,
		o.Options.Resolution,
	)

	taskID, err := o.Kie.CreateTask(ctx, task)
	if err != nil {
		return "", err
	}

	urls, err := o.Kie.Await(ctx, taskID, poll.ImagePolicy())
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

func (o *ImageOp) Commit(ctx context.Context, r *store.Record, resultURL string) error {
	num, _ := r.SceneNumber()
	return o.Store.AttachImage(ctx, r.ID, resultURL, fmt.Sprintf("scene_%d.png", num))
}

func (o *ImageOp) Delay() time.Duration { return 2 * time.Second }
