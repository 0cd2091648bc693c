package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

const downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"

// exported workbooks are named folio_<owner>_<date>; the retention sweep
// only touches files named like that, anything else in the Drive stays put
const reportNamePrefix = "folio_"

// GoogleDriveApi keeps generated portfolio workbooks in Drive so they
// survive bot restarts and stay reachable through a shareable link.
type GoogleDriveApi struct {
	srv *drive.Service
	cfg *config.Config
}

func New(ctx context.Context, cfg *config.Config) *GoogleDriveApi {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		slog.Error("failed on drive.NewService", slog.String("err", err.Error()))
		panic(err)
	}
	return &GoogleDriveApi{srv: srv, cfg: cfg}
}

func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	meta := &drive.File{
		Name:        filename,
		MimeType:    mime.TypeByExtension(filepath.Ext(filename)),
		Description: "portfolio export",
	}

	created, err := a.srv.Files.
		Create(meta).
		Media(reader).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading report to drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	// anyone with the link can read; exports carry no credentials
	perm := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}

	_, err = a.srv.Permissions.Create(created.Id, perm).Context(ctx).Do()
	if err != nil {
		slog.Error("failed on sharing uploaded report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	downloadLink = fmt.Sprintf(downloadLinkTemplate, created.Id)

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("link", downloadLink))

	return downloadLink, nil
}

// DeleteOldFiles sweeps exported reports older than the configured TTL.
// Runs from the crontab job.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"
	cutoff := time.Now().Add(-a.cfg.GoogleDrive.FileTTL)

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("cutoff", cutoff))

	list, err := a.srv.Files.List().Fields("files(id, name, createdTime)").Context(ctx).Do()
	if err != nil {
		slog.Error("failed on listing drive files", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	swept := 0
	for _, f := range list.Files {
		expired, err := reportExpired(f, cutoff)
		if err != nil {
			slog.Error(
				"can't read file created time",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("err", err.Error()),
				slog.String("fileID", f.Id),
			)
			continue
		}
		if !expired {
			continue
		}

		if err := a.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			slog.Error(
				"failed on deleting expired report",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("err", err.Error()),
				slog.String("fileID", f.Id),
			)
			continue
		}
		swept++
	}

	if err := a.srv.Files.EmptyTrash().Context(ctx).Do(); err != nil {
		slog.Error("failed on emptying drive trash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("report sweep done", slog.String("rqID", rqID), slog.Int("swept", swept), slog.Int("kept", len(list.Files)-swept))

	return nil
}

// reportExpired reports whether f is one of the bot's exports and older
// than the cutoff.
func reportExpired(f *drive.File, cutoff time.Time) (bool, error) {
	if !strings.HasPrefix(f.Name, reportNamePrefix) {
		return false, nil
	}

	createdTime, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		return false, err
	}

	return createdTime.Before(cutoff), nil
}
