package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"google.golang.org/protobuf/types/known/structpb"
)

// Retriever returns study material chunks relevant to a query within a subject topic.
type Retriever interface {
	Retrieve(ctx context.Context, query string, subjectID, topicID int) ([]string, error)
}

type pineconeRetriever struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string
	namespace string
	topK      uint32
}

// NewPineconeRetriever returns nil when Pinecone or the OpenAI embedding key is not configured.
func NewPineconeRetriever(cfg *config.Config) (Retriever, error) {
	if cfg.Pinecone.ApiKey == "" || cfg.Pinecone.IndexName == "" || cfg.LLM.OpenAIApiKey == "" {
		log.Warn().Msg("Pinecone retrieval disabled. Contextual answers will not be grounded on course material.")
		return nil, nil
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.Pinecone.ApiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}
	llm, err := openai.New(
		openai.WithModel(cfg.LLM.OpenAIModel),
		openai.WithToken(cfg.LLM.OpenAIApiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &pineconeRetriever{
		client:    pc,
		embedder:  embedder,
		indexName: cfg.Pinecone.IndexName,
		namespace: cfg.Pinecone.Namespace,
		topK:      uint32(cfg.Pinecone.TopK),
	}, nil
}

func topicFilter(subjectID, topicID int) (*structpb.Struct, error) {
	filter := map[string]interface{}{}
	if subjectID > 0 {
		filter["subject_id"] = map[string]interface{}{"$eq": subjectID}
	}
	if topicID > 0 {
		filter["topic_id"] = map[string]interface{}{"$eq": topicID}
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return structpb.NewStruct(filter)
}

func (r *pineconeRetriever) Retrieve(ctx context.Context, query string, subjectID, topicID int) ([]string, error) {
	idxDesc, err := r.client.DescribeIndex(ctx, r.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}
	idxConn, err := r.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: r.namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}
	defer idxConn.Close()

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	filter, err := topicFilter(subjectID, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata filter: %w", err)
	}

	result, err := idxConn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            r.topK,
		MetadataFilter:  filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	var chunks []string
	for _, match := range result.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		metadata := match.Vector.Metadata.AsMap()
		var parts []string
		if heading, ok := metadata["heading"].(string); ok && heading != "" {
			parts = append(parts, "Section: "+heading)
		}
		if content, ok := metadata["content"].(string); ok && content != "" {
			parts = append(parts, content)
		}
		if len(parts) > 0 {
			chunks = append(chunks, strings.Join(parts, "\n"))
		}
	}
	log.Debug().Int("subjectID", subjectID).Int("topicID", topicID).Int("chunks", len(chunks)).Msg("Retrieved course material")
	return chunks, nil
}
