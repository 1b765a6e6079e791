// Package snapshot captures and restores numbered versions of an idea's
// live state: its synthesized text, its graph and the files of its active
// branch folder.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
)

// Store is the persistence the manager needs.
type Store interface {
	GetIdea(ctx context.Context, id string) (*memory.Idea, error)
	SetSynthesis(ctx context.Context, id string, text *string) error
	GetFullState(ctx context.Context, ideaID string) (memory.GraphState, error)
	ReplaceGraph(ctx context.Context, ideaID string, state memory.GraphState) (int, error)
	CreateSnapshot(ctx context.Context, snap memory.Snapshot) (*memory.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*memory.Snapshot, error)
	GetSnapshotByVersion(ctx context.Context, ideaID string, version int) (*memory.Snapshot, error)
	ListSnapshots(ctx context.Context, ideaID string) ([]memory.Snapshot, error)
}

// FolderResolver locates an idea's active branch.
type FolderResolver interface {
	GetActiveBranch(ctx context.Context, ideaID string) (*memory.Branch, error)
	ActiveBranchFolderPath(ctx context.Context, ideaID string) (string, error)
}

// FilesSource tells where restored files came from.
type FilesSource string

// FilesSource values.
const (
	FilesFromDisk     FilesSource = "disk"     // versions/v<N> hot-swap
	FilesFromDatabase FilesSource = "database" // stored file list
	FilesNone         FilesSource = "none"     // no folder or restore failed
)

// RestoreReport describes what a restore managed to bring back. Text, files
// and graph are restored independently.
type RestoreReport struct {
	Snapshot      *memory.Snapshot `json:"snapshot"`
	TextRestored  bool             `json:"textRestored"`
	FilesSource   FilesSource      `json:"filesSource"`
	FilesRestored int              `json:"filesRestored"`
	GraphRestored bool             `json:"graphRestored"`
	SkippedEdges  int              `json:"skippedEdges"`
}

// Manager creates, lists and restores snapshots.
type Manager struct {
	store   Store
	files   *project.Materializer
	folders FolderResolver
	logger  *zap.Logger
}

// NewManager creates a snapshot Manager.
func NewManager(store Store, files *project.Materializer, folders FolderResolver, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		files:   files,
		folders: folders,
		logger:  logger.Named("snapshot"),
	}
}

// CreateSnapshot captures the idea's current text, graph and active branch
// files as the next version. Copying the files into versions/v<N> is
// best-effort; the database row is the source of truth.
func (m *Manager) CreateSnapshot(ctx context.Context, ideaID string, toolsUsed []string) (*memory.Snapshot, error) {
	idea, err := m.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	graph, err := m.store.GetFullState(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}

	dir := m.activeFolder(ctx, ideaID)
	if dir != "" {
		if exists, _ := m.files.Exists(dir); !exists {
			dir = ""
		}
	}
	files := []project.File{}
	if dir != "" {
		if files, err = m.files.ReadFolder(dir); err != nil {
			m.logger.Warn("reading branch folder failed, snapshot has no files",
				zap.String("idea_id", ideaID), zap.String("dir", dir), zap.Error(err))
			files = []project.File{}
		}
	}

	branchID := ""
	if active, err := m.folders.GetActiveBranch(ctx, ideaID); err == nil && active != nil {
		branchID = active.ID
	}

	snap, err := m.store.CreateSnapshot(ctx, memory.Snapshot{
		IdeaID:    ideaID,
		BranchID:  branchID,
		Synthesis: idea.Synthesis,
		Files:     files,
		Nodes:     graph.Nodes,
		Edges:     graph.Edges,
		ToolsUsed: toolsUsed,
	})
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	if dir != "" {
		// The version folder is a byte copy so binary and oversized files
		// survive a restore; the stored list only holds text files.
		versionDir := project.VersionDir(dir, snap.Version)
		if err := m.files.CopyContents(dir, versionDir); err != nil {
			m.logger.Warn("writing version folder failed, restore will use stored files",
				zap.String("idea_id", ideaID), zap.Int("version", snap.Version), zap.Error(err))
		}
	}

	m.logger.Info("snapshot created",
		zap.String("idea_id", ideaID),
		zap.Int("version", snap.Version),
		zap.Int("files", len(files)),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Strings("tools", toolsUsed))
	return snap, nil
}

// GetSnapshots lists an idea's snapshots, newest version first.
func (m *Manager) GetSnapshots(ctx context.Context, ideaID string) ([]memory.Snapshot, error) {
	return m.store.ListSnapshots(ctx, ideaID)
}

// GetSnapshot returns a snapshot by ID.
func (m *Manager) GetSnapshot(ctx context.Context, id string) (*memory.Snapshot, error) {
	return m.store.GetSnapshot(ctx, id)
}

// GetSnapshotByVersion returns an idea's snapshot by version number.
func (m *Manager) GetSnapshotByVersion(ctx context.Context, ideaID string, version int) (*memory.Snapshot, error) {
	return m.store.GetSnapshotByVersion(ctx, ideaID, version)
}

// RestoreSnapshot brings the idea's live state back to a snapshot. A missing
// snapshot fails before anything changes. Text, files and graph are then
// restored as independent steps: a failing step is logged and the others
// still run.
func (m *Manager) RestoreSnapshot(ctx context.Context, snapshotID string) (*RestoreReport, error) {
	snap, err := m.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	ideaID := snap.IdeaID
	report := &RestoreReport{Snapshot: snap, FilesSource: FilesNone}

	if err := m.store.SetSynthesis(ctx, ideaID, snap.Synthesis); err != nil {
		m.logger.Warn("restoring text failed",
			zap.String("idea_id", ideaID), zap.Int("version", snap.Version), zap.Error(err))
	} else {
		report.TextRestored = true
	}

	if dir := m.activeFolder(ctx, ideaID); dir != "" {
		source, n, err := m.restoreFiles(dir, snap)
		if err != nil {
			m.logger.Warn("restoring files failed",
				zap.String("idea_id", ideaID), zap.Int("version", snap.Version), zap.Error(err))
		} else {
			report.FilesSource = source
			report.FilesRestored = n
		}
	}

	skipped, err := m.store.ReplaceGraph(ctx, ideaID, snap.Graph())
	if err != nil {
		m.logger.Warn("restoring graph failed",
			zap.String("idea_id", ideaID), zap.Int("version", snap.Version), zap.Error(err))
	} else {
		report.GraphRestored = true
		report.SkippedEdges = skipped
		if skipped > 0 {
			m.logger.Warn("skipped edges with missing endpoints",
				zap.String("idea_id", ideaID), zap.Int("skipped", skipped))
		}
	}

	m.logger.Info("snapshot restored",
		zap.String("idea_id", ideaID),
		zap.Int("version", snap.Version),
		zap.String("files_source", string(report.FilesSource)))
	return report, nil
}

// restoreFiles hot-swaps versions/v<N> into dir when it exists, replacing
// everything but protected directories and versions/. Otherwise it writes the
// stored file list over dir's tracked files, leaving binary and oversized
// files in place since the list cannot recreate them.
func (m *Manager) restoreFiles(dir string, snap *memory.Snapshot) (FilesSource, int, error) {
	versionDir := project.VersionDir(dir, snap.Version)
	onDisk, err := m.files.Exists(versionDir)
	if err != nil {
		return FilesNone, 0, fmt.Errorf("check version folder: %w", err)
	}

	if onDisk {
		if err := m.files.ClearFolder(dir); err != nil {
			return FilesNone, 0, fmt.Errorf("clear branch folder: %w", err)
		}
		if err := m.files.CopyContents(versionDir, dir); err != nil {
			return FilesNone, 0, fmt.Errorf("copy version folder: %w", err)
		}
		restored, err := m.files.ReadFolder(dir)
		if err != nil {
			return FilesFromDisk, 0, nil
		}
		return FilesFromDisk, len(restored), nil
	}

	if err := m.files.ClearTrackedFiles(dir); err != nil {
		return FilesNone, 0, fmt.Errorf("clear branch folder: %w", err)
	}
	if err := m.files.WriteFiles(dir, snap.Files); err != nil {
		return FilesNone, 0, fmt.Errorf("write stored files: %w", err)
	}
	return FilesFromDatabase, len(snap.Files), nil
}

// activeFolder resolves the active branch folder, or "" when the idea has
// no project yet or the lookup fails.
func (m *Manager) activeFolder(ctx context.Context, ideaID string) string {
	dir, err := m.folders.ActiveBranchFolderPath(ctx, ideaID)
	if err != nil {
		if !errors.Is(err, project.ErrNoProjectPath) {
			m.logger.Warn("resolving active branch folder failed",
				zap.String("idea_id", ideaID), zap.Error(err))
		}
		return ""
	}
	return dir
}
