// Package persistence reconciles in-memory assets with their remote of record.
//
// The Bridge is the only component allowed to mark an asset as persisted
// (isInDb) and the only path that clears dirtiness. It reads and writes the
// session store but is never called back by it.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/assetflow/core"
	"github.com/hupe1980/assetflow/logging"
	"github.com/hupe1980/assetflow/session"
	"github.com/hupe1980/assetflow/telemetry"
)

// Options configures a Bridge.
type Options struct {
	Clock       func() time.Time
	Logger      logging.Logger
	Instruments *telemetry.Instruments
}

// Bridge syncs assets held by a session store with an AssetRepository.
type Bridge struct {
	store       *session.Store
	repo        core.AssetRepository
	clock       func() time.Time
	logger      logging.Logger
	instruments *telemetry.Instruments
}

// NewBridge creates a Bridge over store and repo.
func NewBridge(store *session.Store, repo core.AssetRepository, optFns ...func(o *Options)) *Bridge {
	opts := Options{
		Clock:  func() time.Time { return time.Now().UTC() },
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruments == nil {
		opts.Instruments = telemetry.NoopInstruments()
	}
	return &Bridge{
		store:       store,
		repo:        repo,
		clock:       opts.Clock,
		logger:      opts.Logger,
		instruments: opts.Instruments,
	}
}

// SaveAsset pushes the local asset to the repository, creating it when it
// has never been persisted and updating it in place otherwise. The canonical
// server representation is merged back and the asset is marked synced.
// Collaborator failures are returned unchanged in category; there is no retry.
func (b *Bridge) SaveAsset(ctx context.Context, id string) (out core.Asset, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, b.instruments.Tracer, "asset.save", telemetry.AttrAssetID.String(id))
	defer func() {
		b.instruments.Metrics.RecordAssetSync(ctx, "save", err)
		telemetry.EndSpan(span, err)
	}()

	local, ok := b.store.Asset(id)
	if !ok {
		return core.Asset{}, core.NewNotFound("asset", id)
	}
	if strings.TrimSpace(local.Name) == "" {
		return core.Asset{}, core.NewValidation("asset name is required")
	}
	if b.repo == nil {
		return core.Asset{}, core.NewValidation("no asset repository configured")
	}

	in := core.InputFromAsset(local)
	var remote core.Asset
	if local.Persistence.IsInDB {
		remote, err = b.repo.Update(ctx, local.RemoteKey(), in)
		if err != nil {
			return core.Asset{}, core.NewTransportFailure("update asset", err)
		}
	} else {
		remote, err = b.repo.Create(ctx, in)
		if err != nil {
			return core.Asset{}, core.NewTransportFailure("create asset", err)
		}
	}

	out, err = b.store.UpdateAsset(id, syncPatch(remote, b.clock()))
	if err != nil {
		return core.Asset{}, err
	}
	b.logger.Info("asset saved", "asset_id", id, "remote_id", out.Persistence.RemoteID, "created", !local.Persistence.IsInDB)
	return out, nil
}

// DeleteAsset removes the asset locally, deleting it remotely first when it
// has been persisted.
func (b *Bridge) DeleteAsset(ctx context.Context, id string) (err error) {
	defer func() { b.instruments.Metrics.RecordAssetSync(ctx, "delete", err) }()

	local, ok := b.store.Asset(id)
	if !ok {
		return core.NewNotFound("asset", id)
	}
	if local.Persistence.IsInDB {
		if b.repo == nil {
			return core.NewValidation("no asset repository configured")
		}
		if err := b.repo.Delete(ctx, local.RemoteKey()); err != nil {
			return core.NewTransportFailure("delete asset", err)
		}
	}
	return b.store.RemoveAsset(id)
}

// LoadAssets pulls the repository's assets (optionally only of dataType)
// into the store as synced assets. Local assets with unsynced changes are
// left untouched. It returns the loaded assets as stored.
func (b *Bridge) LoadAssets(ctx context.Context, dataType core.DataType) (loaded []core.Asset, err error) {
	defer func() { b.instruments.Metrics.RecordAssetSync(ctx, "load", err) }()

	if b.repo == nil {
		return nil, core.NewValidation("no asset repository configured")
	}
	remotes, err := b.repo.List(ctx, dataType)
	if err != nil {
		return nil, core.NewTransportFailure("list assets", err)
	}

	now := b.clock()
	err = b.store.Dispatch(func(tx *session.Tx) error {
		loaded = loaded[:0]
		for _, remote := range remotes {
			localID, exists := findByRemoteKey(tx.State(), remote.ID)
			if !exists {
				a := remote.Clone()
				a.Persistence = core.Persistence{IsInDB: true, LastSyncedAt: &now, RemoteID: remote.ID}
				if a.Status == "" {
					a.Status = core.AssetStatusReady
				}
				stored, err := tx.AddAsset(a)
				if err != nil {
					return fmt.Errorf("load asset %s: %w", remote.ID, err)
				}
				loaded = append(loaded, stored)
				continue
			}
			if local, _ := tx.State().Asset(localID); local.Persistence.IsDirty {
				b.logger.Debug("skipping dirty asset", "asset_id", localID)
				continue
			}
			stored, err := tx.UpdateAsset(localID, syncPatch(remote, now))
			if err != nil {
				return fmt.Errorf("load asset %s: %w", remote.ID, err)
			}
			loaded = append(loaded, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// UploadFile stores a binary file in the repository and adds the resulting
// asset to the store as synced.
func (b *Bridge) UploadFile(ctx context.Context, file core.FileUpload) (out core.Asset, err error) {
	defer func() { b.instruments.Metrics.RecordAssetSync(ctx, "upload", err) }()

	if strings.TrimSpace(file.FileName) == "" {
		return core.Asset{}, core.NewValidation("file name is required")
	}
	if b.repo == nil {
		return core.Asset{}, core.NewValidation("no asset repository configured")
	}
	if strings.TrimSpace(file.Name) == "" {
		file.Name = file.FileName
	}
	remote, err := b.repo.Upload(ctx, file)
	if err != nil {
		return core.Asset{}, core.NewTransportFailure("upload file", err)
	}

	now := b.clock()
	a := remote.Clone()
	a.Persistence = core.Persistence{IsInDB: true, LastSyncedAt: &now, RemoteID: remote.ID}
	if a.Status == "" {
		a.Status = core.AssetStatusReady
	}
	err = b.store.Dispatch(func(tx *session.Tx) error {
		if _, taken := tx.State().Asset(a.ID); taken {
			a.ID = ""
		}
		out, err = tx.AddAsset(a)
		return err
	})
	return out, err
}

// DownloadFile returns the binary payload of a persisted asset.
func (b *Bridge) DownloadFile(ctx context.Context, id string) ([]byte, error) {
	local, ok := b.store.Asset(id)
	if !ok {
		return nil, core.NewNotFound("asset", id)
	}
	if !local.Persistence.IsInDB {
		return nil, core.NewValidation(fmt.Sprintf("asset %s has not been persisted", id))
	}
	if b.repo == nil {
		return nil, core.NewValidation("no asset repository configured")
	}
	data, err := b.repo.Download(ctx, local.RemoteKey())
	if err != nil {
		return nil, core.NewTransportFailure("download file", err)
	}
	return data, nil
}

// syncPatch merges the canonical server representation into a local asset
// and marks it synced. The local id and agent linkage are kept.
func syncPatch(remote core.Asset, now time.Time) core.AssetPatch {
	p := core.AssetPatch{
		Persistence: &core.PersistencePatch{
			IsInDB:       core.Ptr(true),
			IsDirty:      core.Ptr(false),
			LastSyncedAt: &now,
			RemoteID:     core.Ptr(remote.ID),
		},
	}
	if remote.Name != "" {
		p.Name = core.Ptr(remote.Name)
	}
	if remote.Description != "" {
		p.Description = core.Ptr(remote.Description)
	}
	if remote.FileType != "" {
		p.FileType = core.Ptr(remote.FileType)
	}
	if remote.DataType != "" && remote.Content != nil {
		p.DataType = core.Ptr(remote.DataType)
		p.Content = remote.Content
	}
	if remote.Status != "" {
		p.Status = core.Ptr(remote.Status)
	}
	mp := &core.AssetMetadataPatch{}
	if !remote.Metadata.UpdatedAt.IsZero() {
		mp.UpdatedAt = core.Ptr(remote.Metadata.UpdatedAt)
	}
	if remote.Metadata.Creator != "" {
		mp.Creator = core.Ptr(remote.Metadata.Creator)
	}
	if remote.Metadata.Tags != nil {
		mp.Tags = remote.Metadata.Tags
	}
	if remote.Metadata.Version > 0 {
		mp.Version = core.Ptr(remote.Metadata.Version)
	}
	p.Metadata = mp
	return p
}

func findByRemoteKey(s core.State, remoteID string) (string, bool) {
	if a, ok := s.Asset(remoteID); ok && (a.Persistence.RemoteID == "" || a.Persistence.RemoteID == remoteID) {
		return a.ID, true
	}
	for _, a := range s.AssetList() {
		if a.Persistence.RemoteID == remoteID {
			return a.ID, true
		}
	}
	return "", false
}
