// Package layout computes the engine's on-disk directory layout: one raw
// journal for the GNS, and per-model subdirectories named by
// <name>-<uuid> so a re-created object never collides with a prior one of
// the same name.
package layout

import "path/filepath"

// GNSJournalPath returns the path of the GNS's raw journal file under
// dataRoot.
func GNSJournalPath(dataRoot string) string {
	return filepath.Join(dataRoot, "gns.db-tlog")
}

// SpacesRoot returns the directory every space directory nests under.
func SpacesRoot(dataRoot string) string {
	return filepath.Join(dataRoot, "spaces")
}

// SpaceDir returns the directory a space's models live under:
// "spaces/<space_name>-<space_uuid>/".
func SpaceDir(dataRoot, spaceName, spaceUUID string) string {
	return filepath.Join(SpacesRoot(dataRoot), spaceName+"-"+spaceUUID)
}

// ModelDir returns the directory holding one model's batch journal and
// metadata sidecar: "mdl/<model_name>-<model_uuid>/".
func ModelDir(dataRoot, spaceName, spaceUUID, modelName, modelUUID string) string {
	return filepath.Join(SpaceDir(dataRoot, spaceName, spaceUUID), "mdl", modelName+"-"+modelUUID)
}

// BatchJournalPath returns the path of a model's row-level batch journal
// file.
func BatchJournalPath(dataRoot, spaceName, spaceUUID, modelName, modelUUID string) string {
	return filepath.Join(ModelDir(dataRoot, spaceName, spaceUUID, modelName, modelUUID), "data")
}

// MetaPath returns the path of a model's metadata sidecar: a bbolt
// database holding the model's Dict properties and batch-journal
// checkpoint, see storage/modelmeta.
func MetaPath(dataRoot, spaceName, spaceUUID, modelName, modelUUID string) string {
	return filepath.Join(ModelDir(dataRoot, spaceName, spaceUUID, modelName, modelUUID), "meta")
}
