package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/assetflow/core"
)

// SaveAsset persists the asset with id and notifies the outcome. Failures are
// also returned.
func (c *Controller) SaveAsset(ctx context.Context, id string) (core.Asset, error) {
	a, err := c.bridge.SaveAsset(ctx, id)
	if err != nil {
		c.logger.Error("asset save failed", "asset_id", id, "error", err)
		c.notify(ctx, core.NotificationError, "Save failed", err.Error())
		return core.Asset{}, err
	}
	c.notify(ctx, core.NotificationSuccess, "Asset saved", fmt.Sprintf("%q has been saved", a.Name))
	return a, nil
}

// DeleteAsset removes the asset locally and, when persisted, remotely.
func (c *Controller) DeleteAsset(ctx context.Context, id string) error {
	if err := c.bridge.DeleteAsset(ctx, id); err != nil {
		c.logger.Error("asset delete failed", "asset_id", id, "error", err)
		c.notify(ctx, core.NotificationError, "Delete failed", err.Error())
		return err
	}
	c.logger.Info("asset deleted", "asset_id", id)
	return nil
}

// LoadAssets pulls remote assets, optionally restricted to dataType, into the
// session.
func (c *Controller) LoadAssets(ctx context.Context, dataType core.DataType) ([]core.Asset, error) {
	loaded, err := c.bridge.LoadAssets(ctx, dataType)
	if err != nil {
		c.logger.Error("asset load failed", "data_type", string(dataType), "error", err)
		c.notify(ctx, core.NotificationError, "Load failed", err.Error())
		return nil, err
	}
	c.notify(ctx, core.NotificationInfo, "Assets loaded", fmt.Sprintf("%d asset(s) loaded", len(loaded)))
	return loaded, nil
}

// UploadFile stores a binary file remotely and adds it to the session.
func (c *Controller) UploadFile(ctx context.Context, file core.FileUpload) (core.Asset, error) {
	a, err := c.bridge.UploadFile(ctx, file)
	if err != nil {
		c.logger.Error("file upload failed", "file_name", file.FileName, "error", err)
		c.notify(ctx, core.NotificationError, "Upload failed", err.Error())
		return core.Asset{}, err
	}
	c.notify(ctx, core.NotificationSuccess, "File uploaded", fmt.Sprintf("%q has been uploaded", a.Name))
	return a, nil
}

// DownloadFile returns the binary payload of a persisted asset.
func (c *Controller) DownloadFile(ctx context.Context, id string) ([]byte, error) {
	data, err := c.bridge.DownloadFile(ctx, id)
	if err != nil {
		c.notify(ctx, core.NotificationError, "Download failed", err.Error())
		return nil, err
	}
	return data, nil
}
