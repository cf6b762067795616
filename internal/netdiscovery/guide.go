package netdiscovery

// AnalysisGuide points a reader at the usual suspects in the raw
// snapshot. It is static by design; the interpretation happens on the
// consuming side.
type AnalysisGuide struct {
	CommonIssues          []CommonIssue `json:"common_issues"`
	ResourceRelationships []string      `json:"resource_relationships"`
}

// CommonIssue names one recurring failure mode and the checks that
// confirm or rule it out.
type CommonIssue struct {
	Issue       string   `json:"issue"`
	Description string   `json:"description"`
	Checks      []string `json:"checks"`
}

// NewAnalysisGuide returns the guide shipped with every snapshot.
func NewAnalysisGuide() AnalysisGuide {
	return AnalysisGuide{
		CommonIssues: []CommonIssue{
			{
				Issue:       "Security group blocks traffic",
				Description: "Tasks start but the service never becomes reachable because an inbound rule is missing.",
				Checks: []string{
					"Compare the container port with the inbound rules of the task security group",
					"Verify the load balancer security group may reach the task security group on the container port",
					"Check outbound rules if the task needs to reach downstream dependencies",
				},
			},
			{
				Issue:       "No route to the image registry",
				Description: "Tasks in private subnets fail to pull images when there is no NAT gateway or VPC endpoint.",
				Checks: []string{
					"Look for a NAT gateway or ECR/S3 VPC endpoints in the route tables of the task subnets",
					"For public subnets, confirm the task has a public IP assigned",
				},
			},
			{
				Issue:       "Health check misconfiguration",
				Description: "Targets register but are killed repeatedly because the health check path or port is wrong.",
				Checks: []string{
					"Compare the target group health check port with the container port",
					"Verify the health check path returns 200 from inside the container",
					"Check whether the health check grace period is long enough for slow-starting apps",
				},
			},
			{
				Issue:       "Subnet exhaustion",
				Description: "Task placement fails when the subnets have no free IP addresses left.",
				Checks: []string{
					"Check AvailableIpAddressCount on the task subnets",
					"Look for tasks stuck in PROVISIONING",
				},
			},
			{
				Issue:       "DNS resolution failure",
				Description: "Containers cannot resolve dependency hostnames when the VPC has DNS support disabled.",
				Checks: []string{
					"Verify enableDnsSupport and enableDnsHostnames on the VPC",
					"Check for custom DHCP option sets overriding the resolver",
				},
			},
		},
		ResourceRelationships: []string{
			"Tasks attach one elastic network interface each; the interface's subnet and security groups decide reachability",
			"A service's target group must live in the same VPC as the tasks it fronts",
			"Route tables are associated per subnet; a task inherits the routes of the subnet it was placed in",
			"The load balancer's security group must allow outbound traffic to the target security group on the health check port",
		},
	}
}
