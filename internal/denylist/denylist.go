// Package denylist holds the two static dictionaries stage B filters
// against: blacklisted effective TLDs and service-like subdomain labels.
// Both are external collaborators per spec.md — constant sets compiled
// into the binary, not fetched or computed at runtime.
package denylist

// serviceSubdomains are subdomain labels that are overwhelmingly
// infrastructure-internal rather than a newly provisioned public host.
// Carried over label-for-label from the source project's
// dictionary/skippable_subdomains.py.
var serviceSubdomains = map[string]struct{}{
	"cpanel": {}, "ftp": {}, "mail": {}, "webmail": {}, "smtp": {}, "pop": {},
	"imap": {}, "vpn": {}, "admin": {}, "ns1": {}, "ns2": {}, "dns": {},
	"dns1": {}, "dns2": {}, "dns3": {}, "dns4": {}, "dns5": {}, "dns6": {},
	"autoconfig": {}, "autodiscover": {}, "mx": {}, "api": {}, "test": {},
	"staging": {}, "beta": {}, "cdn": {}, "static": {}, "sandbox": {},
	"backup": {}, "mysql": {}, "db": {}, "sftp": {}, "secure": {},
	"private": {}, "server": {}, "dashboard": {}, "files": {}, "portal": {},
	"jira": {}, "confluence": {}, "jenkins": {}, "git": {}, "ci": {},
	"monitor": {}, "grafana": {}, "metrics": {}, "ops": {}, "reports": {},
	"log": {}, "logs": {}, "kibana": {}, "elk": {}, "zabbix": {},
	"nagios": {}, "sysadmin": {}, "remote": {}, "root": {}, "auth": {},
	"oauth": {}, "api-docs": {}, "swagger": {}, "proxy": {}, "cache": {},
	"replica": {}, "cloud": {}, "redis": {}, "memcached": {},
	"elasticsearch": {}, "db2": {}, "pgadmin": {}, "phpmyadmin": {},
	"node": {}, "k8s": {}, "kubernetes": {}, "prometheus": {}, "nexus": {},
	"artifact": {}, "ldap": {}, "manager": {}, "tools": {}, "utils": {},
	"console": {}, "devops": {}, "builder": {}, "workflow": {}, "token": {},
	"mailserver": {}, "extranet": {}, "intranet": {}, "sharepoint": {},
	"vpnserver": {}, "reseller": {}, "partner": {}, "pipelines": {},
	"webmaster": {}, "cp": {}, "adminpanel": {}, "administrator": {},
	"sql": {}, "oracle": {}, "billing": {}, "customerportal": {},
	"contracts": {}, "assets": {}, "cpcalendars": {}, "cpcontacts": {},
	"webdisk": {},
}

// blacklistedTLDs are effective TLDs associated heavily enough with abuse
// and throwaway registrations that domains under them are not worth
// tracking as newly-issued-domain signal. This set is an external
// collaborator per spec.md §1; swap it without touching stage B.
var blacklistedTLDs = map[string]struct{}{
	"tk": {}, "ml": {}, "ga": {}, "cf": {}, "gq": {},
	"xyz": {}, "top": {}, "click": {}, "link": {}, "work": {},
	"loan": {}, "win": {}, "bid": {}, "party": {}, "review": {},
	"download": {}, "stream": {}, "racing": {}, "accountant": {},
	"cricket": {}, "faith": {}, "science": {}, "date": {},
}

// IsServiceSubdomain reports whether label (already lowercased by the
// caller) names infrastructure-internal hosts that stage B should drop.
func IsServiceSubdomain(label string) bool {
	_, ok := serviceSubdomains[label]
	return ok
}

// IsBlacklistedTLD reports whether tld (already lowercased by the caller)
// is in the static TLD denylist.
func IsBlacklistedTLD(tld string) bool {
	_, ok := blacklistedTLDs[tld]
	return ok
}
