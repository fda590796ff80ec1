package assemble

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/impromptu/internal/boundary"
	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/tokenizer"
	"github.com/temirov/impromptu/internal/utils"
)

const (
	warningUnreadableFileMessage = "unable to read selected file"
	warningTokenCountMessage     = "unable to count tokens"
	warningUnreadableFileFormat  = "unable to read %s: %v"
)

// Options configures an Assembler.
type Options struct {
	Logger *zap.Logger
	// Concurrency bounds parallel file reads. Zero uses the number of CPUs.
	Concurrency int
	// Counter enables token estimates when set.
	Counter   tokenizer.Counter
	CacheSize int
}

// Request describes one document: the files in output order and everything around them.
type Request struct {
	Files       []string
	Boundary    boundary.Content
	Formatting  FormattingConfig
	IncludeTree bool
	Suffix      string
}

// Document is an assembled prompt.
type Document struct {
	Text       string
	Characters int
	Warnings   []string
}

// Estimate is the predicted size of the document Assemble would produce for the same request.
type Estimate struct {
	Characters    int
	Tokens        int
	TokensCounted bool
}

// Assembler renders documents for one workspace root.
type Assembler struct {
	root        string
	logger      *zap.Logger
	concurrency int
	counter     tokenizer.Counter
	cache       *measureCache
}

// NewAssembler builds an Assembler for root.
func NewAssembler(root string, options Options) (*Assembler, error) {
	cache, cacheError := newMeasureCache(options.CacheSize)
	if cacheError != nil {
		return nil, fmt.Errorf("create measurement cache: %w", cacheError)
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Assembler{
		root:        root,
		logger:      utils.LoggerOrNop(options.Logger),
		concurrency: concurrency,
		counter:     options.Counter,
		cache:       cache,
	}, nil
}

// Evict drops the cached measurement of path.
func (assembler *Assembler) Evict(path string) {
	assembler.cache.evict(path)
}

// Purge drops every cached measurement.
func (assembler *Assembler) Purge() {
	assembler.cache.purge()
}

type blockKind int

const (
	textBlock blockKind = iota
	fileBlock
)

type plannedBlock struct {
	kind      blockKind
	text      string
	fileIndex int
}

// planBlocks lays out the document. Assemble and Estimate both walk this plan; empty
// blocks are dropped by each of them and the rest are joined by a blank line.
func (assembler *Assembler) planBlocks(request Request) []plannedBlock {
	blocks := []plannedBlock{{kind: textBlock, text: request.Boundary.Prepend}}
	if len(request.Files) > 0 {
		if request.IncludeTree {
			blocks = append(blocks,
				plannedBlock{kind: textBlock, text: request.Formatting.ProjectStructureHeader},
				plannedBlock{kind: textBlock, text: fenceTree(output.RenderTree(request.Files, assembler.root))},
			)
		}
		blocks = append(blocks, plannedBlock{kind: textBlock, text: request.Formatting.StartOfFilesHeader})
		for fileIndex := range request.Files {
			blocks = append(blocks, plannedBlock{kind: fileBlock, fileIndex: fileIndex})
		}
	}
	blocks = append(blocks,
		plannedBlock{kind: textBlock, text: request.Boundary.Append},
		plannedBlock{kind: textBlock, text: strings.TrimSpace(request.Suffix)},
	)
	for index := range blocks {
		blocks[index].text = normalizeText(blocks[index].text)
	}
	return blocks
}

func (assembler *Assembler) relativePath(path string) string {
	return normalizeText(utils.RelativePathOrSelf(path, assembler.root))
}

// Assemble renders the document. A template without both placeholders fails before
// any file is read; an unreadable file contributes empty content and a warning.
func (assembler *Assembler) Assemble(request Request) (Document, error) {
	if validationError := request.Formatting.Validate(); validationError != nil {
		return Document{}, validationError
	}
	template := compileFileTemplate(request.Formatting.FileContentTemplate)
	contents, warnings := assembler.readContents(request.Files)

	blocks := assembler.planBlocks(request)
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		text := block.text
		if block.kind == fileBlock {
			text = template.render(assembler.relativePath(request.Files[block.fileIndex]), contents[block.fileIndex])
		}
		if text == utils.EmptyString {
			continue
		}
		parts = append(parts, text)
	}
	documentText := strings.Join(parts, blockSeparator)
	return Document{Text: documentText, Characters: runeCount(documentText), Warnings: warnings}, nil
}

// Estimate predicts the size of Assemble's output from cached per-file measurements.
// Characters always equals the rune count of the assembled text.
func (assembler *Assembler) Estimate(request Request) (Estimate, error) {
	if validationError := request.Formatting.Validate(); validationError != nil {
		return Estimate{}, validationError
	}
	template := compileFileTemplate(request.Formatting.FileContentTemplate)
	measures := assembler.measureFiles(request.Files)

	estimate := Estimate{TokensCounted: assembler.counter != nil}
	emittedBlocks := 0
	for _, block := range assembler.planBlocks(request) {
		var characters int
		var tokensText string
		tokens := 0
		if block.kind == fileBlock {
			relativePath := assembler.relativePath(request.Files[block.fileIndex])
			measure := measures[block.fileIndex]
			characters = template.length(relativePath, measure.characters)
			tokensText = template.shell(relativePath)
			tokens = measure.tokens
			if !measure.tokensCounted && measure.characters > 0 {
				estimate.TokensCounted = false
			}
		} else {
			characters = runeCount(block.text)
			tokensText = block.text
		}
		if characters == 0 {
			continue
		}
		if emittedBlocks > 0 {
			estimate.Characters += blockSeparatorCharacterCount
		}
		emittedBlocks++
		estimate.Characters += characters
		if estimate.TokensCounted {
			blockTokens, counted := assembler.countTokens(tokensText)
			estimate.Tokens += tokens + blockTokens
			estimate.TokensCounted = counted
		}
	}
	if !estimate.TokensCounted {
		estimate.Tokens = 0
	}
	return estimate, nil
}

func (assembler *Assembler) countTokens(text string) (int, bool) {
	result, countError := tokenizer.CountString(assembler.counter, text)
	if countError != nil {
		assembler.logger.Warn(warningTokenCountMessage, zap.Error(countError))
		return 0, false
	}
	return result.Tokens, result.Counted
}

// readContents reads every file concurrently, keeping results in input order.
func (assembler *Assembler) readContents(paths []string) ([]string, []string) {
	contents := make([]string, len(paths))
	failures := make([]error, len(paths))

	var group errgroup.Group
	group.SetLimit(assembler.concurrency)
	for index, path := range paths {
		group.Go(func() error {
			content, readError := assembler.readFile(path)
			contents[index] = content
			failures[index] = readError
			return nil
		})
	}
	_ = group.Wait()

	var warnings []string
	for index, failure := range failures {
		if failure == nil {
			continue
		}
		assembler.logger.Warn(warningUnreadableFileMessage, zap.String("path", paths[index]), zap.Error(failure))
		warnings = append(warnings, fmt.Sprintf(warningUnreadableFileFormat, assembler.relativePath(paths[index]), failure))
	}
	return contents, warnings
}

func (assembler *Assembler) readFile(path string) (string, error) {
	info, statError := os.Stat(path)
	if statError != nil {
		return utils.EmptyString, statError
	}
	data, readError := os.ReadFile(path)
	if readError != nil {
		return utils.EmptyString, readError
	}
	content := normalizeText(string(data))
	assembler.remember(path, info, content)
	return content, nil
}

func (assembler *Assembler) remember(path string, info os.FileInfo, content string) fileMeasure {
	measure, measureError := measureContent(info, content, assembler.counter)
	if measureError != nil {
		assembler.logger.Warn(warningTokenCountMessage, zap.String("path", path), zap.Error(measureError))
	}
	assembler.cache.store(path, measure)
	return measure
}

// measureFiles returns per-file measurements, reading only files whose size or
// modification time changed since they were last measured.
func (assembler *Assembler) measureFiles(paths []string) []fileMeasure {
	measures := make([]fileMeasure, len(paths))

	var group errgroup.Group
	group.SetLimit(assembler.concurrency)
	for index, path := range paths {
		group.Go(func() error {
			info, statError := os.Stat(path)
			if statError != nil {
				assembler.logger.Warn(warningUnreadableFileMessage, zap.String("path", path), zap.Error(statError))
				return nil
			}
			if cached, found := assembler.cache.lookup(path, info); found {
				measures[index] = cached
				return nil
			}
			data, readError := os.ReadFile(path)
			if readError != nil {
				assembler.logger.Warn(warningUnreadableFileMessage, zap.String("path", path), zap.Error(readError))
				return nil
			}
			measures[index] = assembler.remember(path, info, normalizeText(string(data)))
			return nil
		})
	}
	_ = group.Wait()
	return measures
}
