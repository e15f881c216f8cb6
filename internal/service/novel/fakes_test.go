package novel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"yuja/internal/model/novel"
)

// 本文件是 service 层测试用的内存替身：
// repository 用 map 实现，AI 客户端用可编程脚本实现，
// 存储和缓存同样落在内存里。全部单线程使用，锁只是习惯性保险。

var errNotFound = errors.New("not found")

type fakeNovelRepo struct {
	mu     sync.Mutex
	novels map[string]*novel.Novel
}

func newFakeNovelRepo() *fakeNovelRepo {
	return &fakeNovelRepo{novels: map[string]*novel.Novel{}}
}

func (r *fakeNovelRepo) Create(ctx context.Context, n *novel.Novel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	r.novels[n.ID] = n
	return nil
}

func (r *fakeNovelRepo) FindByID(ctx context.Context, id string) (*novel.Novel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.novels[id]
	if !ok || n.DeletedAt != nil {
		return nil, errNotFound
	}
	return n, nil
}

func (r *fakeNovelRepo) FindAll(ctx context.Context) ([]*novel.Novel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*novel.Novel
	for _, n := range r.novels {
		if n.DeletedAt == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNovelRepo) Update(ctx context.Context, id string, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.novels[id]
	if !ok {
		return errNotFound
	}
	if v, ok := updates["script"].(string); ok {
		n.Script = v
	}
	n.UpdatedAt = time.Now()
	return nil
}

func (r *fakeNovelRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.novels[id]; ok {
		now := time.Now()
		n.DeletedAt = &now
	}
	return nil
}

type fakeChapterRepo struct {
	mu       sync.Mutex
	chapters map[string]*novel.Chapter
}

func newFakeChapterRepo() *fakeChapterRepo {
	return &fakeChapterRepo{chapters: map[string]*novel.Chapter{}}
}

func (r *fakeChapterRepo) Create(ctx context.Context, ch *novel.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch.CreatedAt = time.Now()
	r.chapters[ch.ID] = ch
	return nil
}

func (r *fakeChapterRepo) FindByID(ctx context.Context, id string) (*novel.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[id]
	if !ok || ch.DeletedAt != nil {
		return nil, errNotFound
	}
	return ch, nil
}

func (r *fakeChapterRepo) FindByNovelID(ctx context.Context, novelID string) ([]*novel.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*novel.Chapter
	for _, ch := range r.chapters {
		if ch.NovelID == novelID && ch.DeletedAt == nil {
			out = append(out, ch)
		}
	}
	// 按章节号排序（仓库契约）
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ChapterNumber < out[i].ChapterNumber {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeChapterRepo) Update(ctx context.Context, id string, updates bson.M) error {
	return nil
}

func (r *fakeChapterRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.chapters[id]; ok {
		now := time.Now()
		ch.DeletedAt = &now
	}
	return nil
}

func (r *fakeChapterRepo) DeleteByNovelID(ctx context.Context, novelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, ch := range r.chapters {
		if ch.NovelID == novelID && ch.DeletedAt == nil {
			ch.DeletedAt = &now
		}
	}
	return nil
}

type fakeCharacterRepo struct {
	mu         sync.Mutex
	characters map[string]*novel.Character
	order      []string
}

func newFakeCharacterRepo() *fakeCharacterRepo {
	return &fakeCharacterRepo{characters: map[string]*novel.Character{}}
}

func (r *fakeCharacterRepo) Create(ctx context.Context, c *novel.Character) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.CreatedAt = time.Now()
	r.characters[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

func (r *fakeCharacterRepo) FindByID(ctx context.Context, id string) (*novel.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.characters[id]
	if !ok || c.DeletedAt != nil {
		return nil, errNotFound
	}
	return c, nil
}

func (r *fakeCharacterRepo) FindByIDs(ctx context.Context, ids []string) ([]*novel.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*novel.Character
	for _, id := range ids {
		if c, ok := r.characters[id]; ok && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCharacterRepo) FindByNovelID(ctx context.Context, novelID string) ([]*novel.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*novel.Character
	for _, id := range r.order {
		c := r.characters[id]
		if c != nil && c.NovelID == novelID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCharacterRepo) Update(ctx context.Context, id string, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.characters[id]
	if !ok {
		return errNotFound
	}
	if v, ok := updates["reference_image_url"].(string); ok {
		c.ReferenceImageURL = v
	}
	return nil
}

func (r *fakeCharacterRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.characters[id]; ok {
		now := time.Now()
		c.DeletedAt = &now
	}
	return nil
}

func (r *fakeCharacterRepo) DeleteByNovelID(ctx context.Context, novelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, c := range r.characters {
		if c.NovelID == novelID && c.DeletedAt == nil {
			c.DeletedAt = &now
		}
	}
	return nil
}

type fakeSceneRepo struct {
	mu     sync.Mutex
	scenes map[string]*novel.Scene
	order  []string
}

func newFakeSceneRepo() *fakeSceneRepo {
	return &fakeSceneRepo{scenes: map[string]*novel.Scene{}}
}

func (r *fakeSceneRepo) Create(ctx context.Context, sc *novel.Scene) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc.CreatedAt = time.Now()
	r.scenes[sc.ID] = sc
	r.order = append(r.order, sc.ID)
	return nil
}

func (r *fakeSceneRepo) FindByID(ctx context.Context, id string) (*novel.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.scenes[id]
	if !ok || sc.DeletedAt != nil {
		return nil, errNotFound
	}
	return sc, nil
}

func (r *fakeSceneRepo) FindByNovelID(ctx context.Context, novelID string) ([]*novel.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*novel.Scene
	for _, id := range r.order {
		sc := r.scenes[id]
		if sc != nil && sc.NovelID == novelID && sc.DeletedAt == nil {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (r *fakeSceneRepo) FindByChapterID(ctx context.Context, chapterID string) ([]*novel.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*novel.Scene
	for _, id := range r.order {
		sc := r.scenes[id]
		if sc != nil && sc.ChapterID == chapterID && sc.DeletedAt == nil {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (r *fakeSceneRepo) Update(ctx context.Context, id string, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.scenes[id]
	if !ok {
		return errNotFound
	}
	if v, ok := updates["image_url"].(string); ok {
		sc.ImageURL = v
	}
	if v, ok := updates["image_prompt"].(map[string]string); ok {
		sc.ImagePrompt = v
	}
	return nil
}

func (r *fakeSceneRepo) PullCasting(ctx context.Context, novelID, characterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sc := range r.scenes {
		if sc.NovelID != novelID || sc.DeletedAt != nil {
			continue
		}
		var kept []string
		for _, id := range sc.Casting {
			if id != characterID {
				kept = append(kept, id)
			}
		}
		sc.Casting = kept
	}
	return nil
}

func (r *fakeSceneRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sc, ok := r.scenes[id]; ok {
		now := time.Now()
		sc.DeletedAt = &now
	}
	return nil
}

func (r *fakeSceneRepo) DeleteByNovelID(ctx context.Context, novelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, sc := range r.scenes {
		if sc.NovelID == novelID && sc.DeletedAt == nil {
			sc.DeletedAt = &now
		}
	}
	return nil
}

func (r *fakeSceneRepo) DeleteByChapterID(ctx context.Context, chapterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, sc := range r.scenes {
		if sc.ChapterID == chapterID && sc.DeletedAt == nil {
			sc.DeletedAt = &now
		}
	}
	return nil
}

// fakeCompleter 可编程的文本补全替身
// responses 按调用顺序弹出；用完或 err 非空时返回错误。
type fakeCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// fakeImageGen 图片生成替身
// err 非空时全部失败，否则返回固定字节。
type fakeImageGen struct {
	calls   int
	err     error
	payload []byte
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt string, refs [][]byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.payload != nil {
		return f.payload, nil
	}
	return []byte("jpeg-bytes"), nil
}

// fakeStorage 内存存储
type fakeStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: map[string][]byte{}}
}

func (s *fakeStorage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return key, nil
}

func (s *fakeStorage) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return data, nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeStorage) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(s.blobs, key)
		}
	}
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *fakeStorage) Type() string { return "fake" }

// fakePromptCache 内存缓存（只支持 map[string]string 值，测试够用）
type fakePromptCache struct {
	mu      sync.Mutex
	entries map[string]map[string]string
}

func newFakePromptCache() *fakePromptCache {
	return &fakePromptCache{entries: map[string]map[string]string{}}
}

func (c *fakePromptCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := value.(map[string]string); ok {
		c.entries[key] = m
	}
	return nil
}

func (c *fakePromptCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	if !ok {
		return errors.New("cache miss")
	}
	if p, ok := dest.(*map[string]string); ok {
		*p = m
		return nil
	}
	return errors.New("unsupported dest")
}

func (c *fakePromptCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// testEnv 组装一套全内存的服务实例
type testEnv struct {
	svc       NovelService
	novels    *fakeNovelRepo
	chapters  *fakeChapterRepo
	chars     *fakeCharacterRepo
	scenes    *fakeSceneRepo
	completer *fakeCompleter
	imageGen  *fakeImageGen
	store     *fakeStorage
	cache     *fakePromptCache
}

func newTestEnv() *testEnv {
	env := &testEnv{
		novels:    newFakeNovelRepo(),
		chapters:  newFakeChapterRepo(),
		chars:     newFakeCharacterRepo(),
		scenes:    newFakeSceneRepo(),
		completer: &fakeCompleter{},
		imageGen:  &fakeImageGen{},
		store:     newFakeStorage(),
		cache:     newFakePromptCache(),
	}
	env.svc = NewNovelService(
		env.novels, env.chapters, env.chars, env.scenes,
		env.completer, env.imageGen, env.store, env.cache,
	)
	return env
}
