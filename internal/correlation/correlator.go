// Package correlation discovers the cloud resources that belong to one
// application by heuristic name and tag matching. Nothing here relies
// on an explicit foreign key: an app identifier is correlated against
// cluster, service, task definition and load balancer names, so results
// are candidates, not guarantees.
package correlation

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/logging"
)

// describeTagsBatchSize is the API limit for DescribeTags resource ARNs.
const describeTagsBatchSize = 20

// Resources lists the candidates found for one app identifier, in
// discovery order per source.
type Resources struct {
	Clusters        []string `json:"clusters"`
	Services        []string `json:"services"`
	TaskDefinitions []string `json:"task_definitions"`
	LoadBalancers   []string `json:"load_balancers"`
}

// Correlator matches resources to app identifiers by name.
type Correlator struct {
	ecs            awsapi.ECSAPI
	elb            awsapi.ELBAPI
	taskDefs       *awsapi.TaskDefinitionCache
	maxConcurrency int
	logger         *logging.Logger
}

// New creates a Correlator. maxConcurrency bounds the per-resource
// fan-out; values below one fall back to a small default.
func New(ecsAPI awsapi.ECSAPI, elbAPI awsapi.ELBAPI, taskDefs *awsapi.TaskDefinitionCache, maxConcurrency int) *Correlator {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Correlator{
		ecs:            ecsAPI,
		elb:            elbAPI,
		taskDefs:       taskDefs,
		maxConcurrency: maxConcurrency,
		logger:         logging.GetLogger("correlation"),
	}
}

// FindResources searches clusters, services, task definitions and load
// balancers whose names relate to appID. Every source failure is caught
// locally and yields no candidates from that source only, so the result
// is always usable.
func (c *Correlator) FindResources(ctx context.Context, appID string) *Resources {
	var (
		clusters []string
		services []string
		taskDefs []string
		lbs      []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		clusters, services = c.findClustersAndServices(gctx, appID)
		return nil
	})
	g.Go(func() error {
		taskDefs = c.taskDefinitionIdentifiers(gctx, appID)
		return nil
	})
	g.Go(func() error {
		lbs = c.findLoadBalancers(gctx, appID)
		return nil
	})
	_ = g.Wait()

	return &Resources{
		Clusters:        clusters,
		Services:        services,
		TaskDefinitions: taskDefs,
		LoadBalancers:   lbs,
	}
}

// findClustersAndServices matches cluster names against appID, then
// lists services inside each matched cluster. The default cluster is
// always probed as well, since services can exist outside any matched
// cluster.
func (c *Correlator) findClustersAndServices(ctx context.Context, appID string) ([]string, []string) {
	needle := strings.ToLower(appID)
	matched := []string{}

	paginator := ecs.NewListClustersPaginator(c.ecs, &ecs.ListClustersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Warn("listing clusters failed: %v", err)
			break
		}
		for _, arn := range page.ClusterArns {
			name := diagnosis.ShortARN(arn)
			if strings.Contains(strings.ToLower(name), needle) {
				matched = append(matched, name)
			}
		}
	}

	probes := append([]string{}, matched...)
	if !containsString(probes, "default") {
		probes = append(probes, "default")
	}

	perCluster := make([][]string, len(probes))
	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(c.maxConcurrency)
	for i, clusterName := range probes {
		sg.Go(func() error {
			perCluster[i] = c.matchingServices(sctx, clusterName, needle)
			return nil
		})
	}
	_ = sg.Wait()

	services := []string{}
	seen := map[string]struct{}{}
	for _, list := range perCluster {
		for _, svc := range list {
			if _, ok := seen[svc]; ok {
				continue
			}
			seen[svc] = struct{}{}
			services = append(services, svc)
		}
	}
	return matched, services
}

// matchingServices lists services in one cluster and keeps those whose
// name contains the needle. A missing cluster is not an error here; the
// default cluster in particular often does not exist.
func (c *Correlator) matchingServices(ctx context.Context, cluster, needle string) []string {
	names := []string{}
	paginator := ecs.NewListServicesPaginator(c.ecs, &ecs.ListServicesInput{
		Cluster: aws.String(cluster),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if !awsapi.IsClusterNotFound(err) {
				c.logger.Debug("listing services in cluster %s failed: %v", cluster, err)
			}
			break
		}
		for _, arn := range page.ServiceArns {
			name := diagnosis.ShortARN(arn)
			if strings.Contains(strings.ToLower(name), needle) {
				names = append(names, name)
			}
		}
	}
	return names
}

// RelatedTaskDefinitions returns the most recent active revision of
// every task definition family plausibly owned by appID: families under
// the appID prefix plus a fixed set of naming variations.
func (c *Correlator) RelatedTaskDefinitions(ctx context.Context, appID string) []*ecstypes.TaskDefinition {
	candidates := []string{}
	seenFamily := map[string]struct{}{}
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seenFamily[name]; ok {
			return
		}
		seenFamily[name] = struct{}{}
		candidates = append(candidates, name)
	}

	paginator := ecs.NewListTaskDefinitionFamiliesPaginator(c.ecs, &ecs.ListTaskDefinitionFamiliesInput{
		FamilyPrefix: aws.String(appID),
		Status:       ecstypes.TaskDefinitionFamilyStatusActive,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Warn("listing task definition families failed: %v", err)
			break
		}
		for _, family := range page.Families {
			add(family)
		}
	}

	for _, variation := range nameVariations(appID) {
		add(variation)
	}

	defs := make([]*ecstypes.TaskDefinition, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, family := range candidates {
		g.Go(func() error {
			defs[i] = c.latestTaskDefinition(gctx, family)
			return nil
		})
	}
	_ = g.Wait()

	out := []*ecstypes.TaskDefinition{}
	seenARN := map[string]struct{}{}
	for _, def := range defs {
		if def == nil {
			continue
		}
		arn := aws.ToString(def.TaskDefinitionArn)
		if _, ok := seenARN[arn]; ok {
			continue
		}
		seenARN[arn] = struct{}{}
		out = append(out, def)
	}
	return out
}

// latestTaskDefinition resolves one family to its newest active
// revision, or nil when the family does not exist.
func (c *Correlator) latestTaskDefinition(ctx context.Context, family string) *ecstypes.TaskDefinition {
	listed, err := c.ecs.ListTaskDefinitions(ctx, &ecs.ListTaskDefinitionsInput{
		FamilyPrefix: aws.String(family),
		Status:       ecstypes.TaskDefinitionStatusActive,
		Sort:         ecstypes.SortOrderDesc,
		MaxResults:   aws.Int32(1),
	})
	if err != nil {
		c.logger.Debug("listing task definitions for family %s failed: %v", family, err)
		return nil
	}
	if len(listed.TaskDefinitionArns) == 0 {
		return nil
	}

	def, err := c.taskDefs.Describe(ctx, listed.TaskDefinitionArns[0])
	if err != nil {
		c.logger.Debug("describing task definition %s failed: %v", listed.TaskDefinitionArns[0], err)
		return nil
	}
	return def
}

// taskDefinitionIdentifiers reduces the related task definitions to
// family:revision identifiers and folds in directly matching names from
// the global task definition listing.
func (c *Correlator) taskDefinitionIdentifiers(ctx context.Context, appID string) []string {
	ids := []string{}
	seen := map[string]struct{}{}
	for _, def := range c.RelatedTaskDefinitions(ctx, appID) {
		id := diagnosis.ShortARN(aws.ToString(def.TaskDefinitionArn))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	needle := strings.ToLower(appID)
	paginator := ecs.NewListTaskDefinitionsPaginator(c.ecs, &ecs.ListTaskDefinitionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Debug("listing task definitions failed: %v", err)
			break
		}
		for _, arn := range page.TaskDefinitionArns {
			id := diagnosis.ShortARN(arn)
			if !strings.Contains(strings.ToLower(id), needle) {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// findLoadBalancers matches load balancers by name substring. When no
// name matches, it falls back to Name tags so balancers with generated
// names are still found.
func (c *Correlator) findLoadBalancers(ctx context.Context, appID string) []string {
	needle := strings.ToLower(appID)
	names := []string{}

	type lbRef struct {
		name string
		arn  string
	}
	all := []lbRef{}

	paginator := elbv2.NewDescribeLoadBalancersPaginator(c.elb, &elbv2.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Warn("describing load balancers failed: %v", err)
			return names
		}
		for _, lb := range page.LoadBalancers {
			ref := lbRef{
				name: aws.ToString(lb.LoadBalancerName),
				arn:  aws.ToString(lb.LoadBalancerArn),
			}
			all = append(all, ref)
			if strings.Contains(strings.ToLower(ref.name), needle) {
				names = append(names, ref.name)
			}
		}
	}
	if len(names) > 0 {
		return names
	}

	nameByARN := make(map[string]string, len(all))
	for _, ref := range all {
		nameByARN[ref.arn] = ref.name
	}

	for start := 0; start < len(all); start += describeTagsBatchSize {
		end := min(start+describeTagsBatchSize, len(all))
		arns := make([]string, 0, end-start)
		for _, ref := range all[start:end] {
			arns = append(arns, ref.arn)
		}

		tags, err := c.elb.DescribeTags(ctx, &elbv2.DescribeTagsInput{ResourceArns: arns})
		if err != nil {
			c.logger.Debug("describing load balancer tags failed: %v", err)
			continue
		}
		for _, desc := range tags.TagDescriptions {
			for _, tag := range desc.Tags {
				if aws.ToString(tag.Key) != "Name" {
					continue
				}
				if !strings.Contains(strings.ToLower(aws.ToString(tag.Value)), needle) {
					continue
				}
				if name, ok := nameByARN[aws.ToString(desc.ResourceArn)]; ok {
					names = append(names, name)
				}
			}
		}
	}
	return names
}

// nameVariations returns the naming templates probed in addition to the
// family-prefix listing.
func nameVariations(appID string) []string {
	variations := []string{
		appID,
		appID + "-task",
		appID + "-service",
		appID + "-container",
		"task-" + appID,
		"service-" + appID,
	}
	if idx := strings.LastIndex(appID, "-"); idx >= 0 {
		variations = append(variations, "failing-task-def-"+appID[idx+1:])
	}
	return variations
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
