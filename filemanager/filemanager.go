package filemanager

import (
	"archive/zip"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"VirtualTourServer/config"
	"VirtualTourServer/utils"
)

// Tour 一条全景漫游记录，磁盘目录本身就是数据库记录
type Tour struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	CoverURL string `json:"coverUrl,omitempty"`
	MainFile string `json:"mainFile"`
}

// 入口页探测的优先级列表，决定访客落地页，顺序不能改
var preferredMainFiles = []string{"index.htm", "index.html", "tour.html", "main.html", "home.html"}

// ID只保留字母数字下划线连字符
var idSanitizePattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileManager 负责全部文件系统变更：ID清洗、路径解析、压缩包落盘、封面替换、改名、删除、列表扫描
type FileManager struct {
	cfg *config.Config
}

func New(cfg *config.Config) *FileManager {
	return &FileManager{cfg: cfg}
}

// SanitizeID 剔除ID中所有非法字符，结果为空时报校验错误
func (fm *FileManager) SanitizeID(rawID string) (string, error) {
	sanitized := idSanitizePattern.ReplaceAllString(rawID, "")
	if sanitized == "" {
		return "", newValidation("Invalid Tour ID", nil)
	}
	return sanitized, nil
}

// TourPath 漫游目录的磁盘路径
func (fm *FileManager) TourPath(tourID string) string {
	return filepath.Join(fm.cfg.ToursDir, tourID)
}

// CoverPath 按允许的扩展名逐个探测已存在的封面文件，没有则返回空串
// （不变式保证同一ID最多存在一张封面）
func (fm *FileManager) CoverPath(tourID string) string {
	for _, ext := range fm.cfg.AllowedCoverExts {
		path := filepath.Join(fm.cfg.CoversDir, tourID+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// MainHTMLFile 探测漫游目录的入口页文件名
// 先按preferredMainFiles的固定优先级找，找不到再取目录中（按文件名序）第一个.html/.htm，
// 都没有返回空串
func (fm *FileManager) MainHTMLFile(tourDir string) string {
	entries, err := os.ReadDir(tourDir)
	if err != nil {
		return ""
	}

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names[entry.Name()] = true
		}
	}

	for _, p := range preferredMainFiles {
		if names[p] {
			return p
		}
	}

	// os.ReadDir已按文件名排序，这里取到的是字典序第一个HTML文件
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
			return name
		}
	}
	return ""
}

// ListTours 扫描存储根目录的一级子目录，只收录能探测到入口页的有效漫游
// os.ReadDir按名称排序，所以列表结果按ID字典序稳定输出
func (fm *FileManager) ListTours() ([]Tour, error) {
	tours := []Tour{}

	entries, err := os.ReadDir(fm.cfg.ToursDir)
	if err != nil {
		if os.IsNotExist(err) {
			return tours, nil
		}
		return nil, newUnexpected("read tours dir", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tourID := entry.Name()
		mainFile := fm.MainHTMLFile(fm.TourPath(tourID))
		if mainFile == "" {
			continue
		}
		tours = append(tours, fm.buildTour(tourID, mainFile))
	}
	return tours, nil
}

// GetTour 构造单条漫游记录，目录缺失或没有入口页时报not found
func (fm *FileManager) GetTour(tourID string) (*Tour, error) {
	mainFile := fm.MainHTMLFile(fm.TourPath(tourID))
	if mainFile == "" {
		return nil, newNotFound("Tour not found")
	}
	tour := fm.buildTour(tourID, mainFile)
	return &tour, nil
}

func (fm *FileManager) buildTour(tourID, mainFile string) Tour {
	tour := Tour{
		ID:       tourID,
		Name:     displayName(tourID),
		URL:      "/tours/" + tourID + "/" + mainFile,
		MainFile: mainFile,
	}
	if coverPath := fm.CoverPath(tourID); coverPath != "" {
		tour.CoverURL = "/covers/" + filepath.Base(coverPath)
	}
	return tour
}

// displayName 把ID中的分隔符换成空格并按单词首字母大写，得到展示名
func displayName(tourID string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(tourID)
	return cases.Title(language.English).String(cleaned)
}

// SaveCover 校验扩展名和大小后写入封面，同ID的旧封面先删掉保证最多一张
// 返回封面的访问URL
func (fm *FileManager) SaveCover(tourID string, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if !fm.cfg.CoverExtAllowed(ext) {
		return "", newValidation("Invalid cover extension. Allowed: "+strings.Join(fm.cfg.AllowedCoverExts, ", "), nil)
	}

	if file.Size > fm.cfg.MaxCoverSize {
		return "", newValidation("Cover file too large (Max "+utils.FormatSize(fm.cfg.MaxCoverSize)+")", nil)
	}

	if oldCover := fm.CoverPath(tourID); oldCover != "" {
		if err := os.Remove(oldCover); err != nil {
			return "", newUnexpected("remove old cover", err)
		}
	}

	targetPath := filepath.Join(fm.cfg.CoversDir, tourID+"."+ext)
	if err := saveUploadedFile(file, targetPath); err != nil {
		return "", newUnexpected("write cover file", err)
	}
	return "/covers/" + tourID + "." + ext, nil
}

// SaveTour 压缩包落盘主流程
// 核心逻辑：占用检查 → 大小/扩展名校验 → 暂存zip → 解压到临时目录 → 展平单层包装目录
// → 整体move到最终位置 → 校验入口页（失败则回滚删除）。临时产物在任何出口都会清理。
func (fm *FileManager) SaveTour(tourID string, zipFile *multipart.FileHeader, overwrite bool) error {
	tourPath := fm.TourPath(tourID)

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(zipFile.Filename), "."))
	if !fm.cfg.TourExtAllowed(ext) {
		return newValidation("Invalid tour archive extension. Allowed: "+strings.Join(fm.cfg.AllowedTourExts, ", "), nil)
	}

	if zipFile.Size > fm.cfg.MaxTourSize {
		return newValidation("Tour ZIP too large (Max "+utils.FormatSize(fm.cfg.MaxTourSize)+")", nil)
	}

	// 占用检查和后续move并非原子，两个并发同ID上传可以交错（基线行为，见DESIGN.md）
	if _, err := os.Stat(tourPath); err == nil {
		if !overwrite {
			return newConflict("Tour ID already exists")
		}
		if err := os.RemoveAll(tourPath); err != nil {
			return newUnexpected("remove existing tour", err)
		}
	}

	tempZip := filepath.Join(fm.cfg.ToursDir, tourID+"_temp.zip")
	if err := saveUploadedFile(zipFile, tempZip); err != nil {
		return newUnexpected("write temp zip", err)
	}
	defer os.Remove(tempZip)

	extractDir := filepath.Join(fm.cfg.ToursDir, tourID+"_extract")
	// move成功后extractDir已不存在（或只剩被展平的空壳），RemoveAll对不存在路径是no-op
	defer os.RemoveAll(extractDir)

	if err := extractZip(tempZip, extractDir); err != nil {
		return err
	}

	// 展平规则：解压结果只有一个顶层条目且是目录时，把这层包装目录去掉
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return newUnexpected("read extract dir", err)
	}
	sourceDir := extractDir
	if len(entries) == 1 && entries[0].IsDir() {
		sourceDir = filepath.Join(extractDir, entries[0].Name())
	}

	if err := os.Rename(sourceDir, tourPath); err != nil {
		return newUnexpected("move tour into place", err)
	}

	// 落位后校验入口页，没有就整个回滚，不留半成品目录
	if fm.MainHTMLFile(tourPath) == "" {
		os.RemoveAll(tourPath)
		return newValidation("No HTML file found in ZIP", ErrNoHTMLEntry)
	}
	return nil
}

// extractZip 把压缩包解压到dest，跳过平台元数据条目并拦截越界路径
func extractZip(zipPath, dest string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return newValidation("Invalid ZIP file", ErrInvalidArchive)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return newUnexpected("create extract dir", err)
	}
	cleanDest := filepath.Clean(dest)

	for _, f := range reader.File {
		// macOS打包产生的元数据不落盘
		if strings.HasPrefix(f.Name, "__MACOSX/") || filepath.Base(f.Name) == ".DS_Store" {
			continue
		}

		target := filepath.Join(dest, f.Name)
		// 条目路径必须落在解压目录内，带../的包按损坏处理
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return newValidation("Invalid ZIP file", ErrInvalidArchive)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return newUnexpected("create dir entry", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return newUnexpected("create parent dir", err)
		}
		rc, err := f.Open()
		if err != nil {
			return newValidation("Invalid ZIP file", ErrInvalidArchive)
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			rc.Close()
			return newUnexpected("create file entry", err)
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return newUnexpected("write file entry", err)
		}
	}
	return nil
}

// RenameTour 移动漫游目录，封面存在时跟着改名
// 目录move和封面move不是一个事务，中间失败只影响封面（基线行为）
func (fm *FileManager) RenameTour(oldID, newID string) error {
	oldPath := fm.TourPath(oldID)
	newPath := fm.TourPath(newID)

	if _, err := os.Stat(oldPath); os.IsNotExist(err) {
		return newNotFound("Tour not found")
	}
	if _, err := os.Stat(newPath); err == nil {
		return newConflict("New Tour ID already exists")
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return newUnexpected("rename tour dir", err)
	}

	if oldCover := fm.CoverPath(oldID); oldCover != "" {
		newCover := filepath.Join(fm.cfg.CoversDir, newID+filepath.Ext(oldCover))
		if err := os.Rename(oldCover, newCover); err != nil {
			return newUnexpected("rename cover file", err)
		}
	}
	return nil
}

// DeleteTour 删除漫游目录和封面，目标本就不存在时静默成功（幂等）
func (fm *FileManager) DeleteTour(tourID string) error {
	if err := os.RemoveAll(fm.TourPath(tourID)); err != nil {
		return newUnexpected("remove tour dir", err)
	}
	if coverPath := fm.CoverPath(tourID); coverPath != "" {
		if err := os.Remove(coverPath); err != nil {
			return newUnexpected("remove cover file", err)
		}
	}
	return nil
}

func saveUploadedFile(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
